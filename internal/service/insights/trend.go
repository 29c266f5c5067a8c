// Package insights summarizes an account's cached daily metrics series for
// the dashboard charts.
package insights

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yerna09/smartselling/internal/domain"
)

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

type Summary struct {
	Direction   TrendDirection `json:"direction"`
	GrowthPct   float64        `json:"growth_pct"`
	BestDay     string         `json:"best_day,omitempty"`
	TotalSales  float64        `json:"total_sales"`
	TotalOrders int            `json:"total_orders"`
	Days        int            `json:"days"`
}

type Engine struct {
	// Window is how many trailing days form the "recent" average that gets
	// compared against the preceding window of the same size.
	Window int
	// FlatThresholdPct below which growth counts as flat.
	FlatThresholdPct float64
}

func NewEngine() *Engine {
	return &Engine{
		Window:           7,
		FlatThresholdPct: 2.0,
	}
}

// Summarize derives totals and a sales trend from the daily series. It
// needs at least two full windows of samples to call a direction;
// shorter series get totals with a flat trend.
func (e *Engine) Summarize(samples []domain.DailyMetrics) (Summary, error) {
	if e.Window <= 0 {
		return Summary{}, errors.New("window must be positive")
	}
	for _, s := range samples {
		if s.DailySales < 0 {
			return Summary{}, fmt.Errorf("negative daily sales on %s", s.Date)
		}
	}

	ordered := make([]domain.DailyMetrics, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date < ordered[j].Date })

	out := Summary{Direction: TrendFlat, Days: len(ordered)}
	for _, s := range ordered {
		out.TotalSales += s.DailySales
		out.TotalOrders += s.DailyOrders
		if out.BestDay == "" {
			out.BestDay = s.Date
		} else if s.DailySales > salesOn(ordered, out.BestDay) {
			out.BestDay = s.Date
		}
	}

	if len(ordered) < 2*e.Window {
		return out, nil
	}

	recent := average(ordered[len(ordered)-e.Window:])
	prior := average(ordered[len(ordered)-2*e.Window : len(ordered)-e.Window])

	switch {
	case prior == 0 && recent == 0:
		out.GrowthPct = 0
	case prior == 0:
		out.GrowthPct = 100
	default:
		out.GrowthPct = (recent - prior) / prior * 100
	}

	switch {
	case out.GrowthPct >= e.FlatThresholdPct:
		out.Direction = TrendUp
	case out.GrowthPct <= -e.FlatThresholdPct:
		out.Direction = TrendDown
	default:
		out.Direction = TrendFlat
	}
	return out, nil
}

func average(samples []domain.DailyMetrics) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.DailySales
	}
	return sum / float64(len(samples))
}

func salesOn(samples []domain.DailyMetrics, date string) float64 {
	for _, s := range samples {
		if s.Date == date {
			return s.DailySales
		}
	}
	return 0
}
