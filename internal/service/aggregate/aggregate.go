// Package aggregate derives combined dashboard totals from the linked
// account collection. Everything here is a pure function of its input.
package aggregate

import "github.com/yerna09/smartselling/internal/domain"

// ScopeAll aggregates over every active account; any other scope value is
// parsed as a single account id.
const ScopeAll int64 = 0

// Aggregate sums metrics over the active accounts in the collection.
// Inactive accounts stay in the collection but never count toward totals.
// When scope names a single account, the result is that account's own
// metrics, or the zero aggregate if it is absent or inactive.
func Aggregate(accounts []domain.MLAccount, scope int64) domain.AggregateMetrics {
	var out domain.AggregateMetrics
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		if scope != ScopeAll && a.ID != scope {
			continue
		}
		out.TotalSales += a.TotalSales
		out.TotalOrders += a.TotalOrders
		out.ActiveListings += a.ActiveListings
		out.AccountsCount++
	}
	if out.TotalOrders > 0 {
		out.AverageOrderValue = out.TotalSales / float64(out.TotalOrders)
	}
	return out
}
