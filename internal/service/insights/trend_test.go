package insights

import (
	"fmt"
	"testing"

	"github.com/yerna09/smartselling/internal/domain"
)

func series(sales ...float64) []domain.DailyMetrics {
	out := make([]domain.DailyMetrics, 0, len(sales))
	for i, s := range sales {
		out = append(out, domain.DailyMetrics{
			Date:        fmt.Sprintf("2026-08-%02d", i+1),
			DailySales:  s,
			DailyOrders: 1,
		})
	}
	return out
}

func TestSummarizeShortSeriesIsFlat(t *testing.T) {
	engine := NewEngine()
	got, err := engine.Summarize(series(10, 20, 30))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got.Direction != TrendFlat {
		t.Fatalf("short series must stay flat, got %s", got.Direction)
	}
	if got.TotalSales != 60 || got.Days != 3 {
		t.Fatalf("expected totals over 3 days, got %+v", got)
	}
	if got.BestDay != "2026-08-03" {
		t.Fatalf("expected best day 2026-08-03, got %s", got.BestDay)
	}
}

func TestSummarizeDetectsUptrend(t *testing.T) {
	engine := NewEngine()
	// Prior week averages 100, recent week 150.
	got, err := engine.Summarize(series(100, 100, 100, 100, 100, 100, 100, 150, 150, 150, 150, 150, 150, 150))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got.Direction != TrendUp {
		t.Fatalf("expected uptrend, got %s (growth %.2f)", got.Direction, got.GrowthPct)
	}
	if got.GrowthPct < 49.9 || got.GrowthPct > 50.1 {
		t.Fatalf("expected ~50%% growth, got %.2f", got.GrowthPct)
	}
}

func TestSummarizeDetectsDowntrend(t *testing.T) {
	engine := NewEngine()
	got, err := engine.Summarize(series(200, 200, 200, 200, 200, 200, 200, 80, 80, 80, 80, 80, 80, 80))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got.Direction != TrendDown {
		t.Fatalf("expected downtrend, got %s", got.Direction)
	}
}

func TestSummarizeZeroPriorWindow(t *testing.T) {
	engine := NewEngine()
	got, err := engine.Summarize(series(0, 0, 0, 0, 0, 0, 0, 10, 10, 10, 10, 10, 10, 10))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got.GrowthPct != 100 || got.Direction != TrendUp {
		t.Fatalf("sales from nothing is full growth, got %+v", got)
	}
}

func TestSummarizeRejectsNegativeSales(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.Summarize(series(10, -5)); err == nil {
		t.Fatal("expected error for negative daily sales")
	}
}

func TestSummarizeUnorderedInput(t *testing.T) {
	engine := NewEngine()
	samples := []domain.DailyMetrics{
		{Date: "2026-08-03", DailySales: 30},
		{Date: "2026-08-01", DailySales: 10},
		{Date: "2026-08-02", DailySales: 20},
	}
	got, err := engine.Summarize(samples)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got.BestDay != "2026-08-03" || got.TotalSales != 60 {
		t.Fatalf("expected date-sorted handling, got %+v", got)
	}
}
