package aggregate

import (
	"reflect"
	"testing"

	"github.com/yerna09/smartselling/internal/domain"
)

func sampleCollection() []domain.MLAccount {
	return []domain.MLAccount{
		{ID: 1, IsActive: true, TotalSales: 100, TotalOrders: 2, ActiveListings: 5},
		{ID: 2, IsActive: false, TotalSales: 50, TotalOrders: 1, ActiveListings: 1},
	}
}

func TestAggregateEmptyCollection(t *testing.T) {
	got := Aggregate(nil, ScopeAll)
	want := domain.AggregateMetrics{}
	if got != want {
		t.Fatalf("expected zero aggregate, got %+v", got)
	}
}

func TestAggregateExcludesInactiveAccounts(t *testing.T) {
	got := Aggregate(sampleCollection(), ScopeAll)
	if got.TotalSales != 100 || got.TotalOrders != 2 || got.ActiveListings != 5 {
		t.Fatalf("inactive account leaked into totals: %+v", got)
	}
	if got.AccountsCount != 1 {
		t.Fatalf("expected 1 counted account, got %d", got.AccountsCount)
	}
	if got.AverageOrderValue != 50 {
		t.Fatalf("expected AOV 50, got %v", got.AverageOrderValue)
	}
}

func TestAggregateScopedToInactiveAccountIsZero(t *testing.T) {
	got := Aggregate(sampleCollection(), 2)
	if got != (domain.AggregateMetrics{}) {
		t.Fatalf("scoping to an inactive account must yield the zero aggregate, got %+v", got)
	}
}

func TestAggregateScopedToMissingAccountIsZero(t *testing.T) {
	got := Aggregate(sampleCollection(), 77)
	if got != (domain.AggregateMetrics{}) {
		t.Fatalf("scoping to a missing account must yield the zero aggregate, got %+v", got)
	}
}

func TestAggregateScopedToActiveAccount(t *testing.T) {
	got := Aggregate(sampleCollection(), 1)
	want := domain.AggregateMetrics{
		TotalSales:        100,
		TotalOrders:       2,
		ActiveListings:    5,
		AccountsCount:     1,
		AverageOrderValue: 50,
	}
	if got != want {
		t.Fatalf("expected exactly account 1's metrics, got %+v", got)
	}
}

func TestAverageOrderValueGuardsZeroOrders(t *testing.T) {
	accounts := []domain.MLAccount{
		{ID: 1, IsActive: true, TotalSales: 500, TotalOrders: 0, ActiveListings: 3},
	}
	got := Aggregate(accounts, ScopeAll)
	if got.AverageOrderValue != 0 {
		t.Fatalf("expected AOV 0 when no orders, got %v", got.AverageOrderValue)
	}
}

func TestAggregateIsPure(t *testing.T) {
	collection := sampleCollection()
	first := Aggregate(collection, ScopeAll)
	second := Aggregate(collection, ScopeAll)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input must yield identical output: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(collection, sampleCollection()) {
		t.Fatal("aggregate must not mutate its input")
	}
}
