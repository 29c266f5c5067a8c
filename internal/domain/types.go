// Package domain holds the types shared between the API server, the stores
// and the client-side session machinery. JSON tags define the wire shapes.
package domain

import "time"

// User is an application account. PasswordHash and the stored session token
// never leave the server.
type User struct {
	ID           int64      `json:"user_id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Token        string     `json:"-"`
	MLLinked     bool       `json:"ml_linked"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// MLAccount is one linked MercadoLibre seller account with its cached
// dashboard metrics. Marketplace tokens never leave the server.
type MLAccount struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"-"`
	MLUserID string `json:"ml_user_id"`

	Nickname  string `json:"ml_nickname"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	CountryID string `json:"country_id,omitempty"`
	SiteID    string `json:"site_id,omitempty"`

	Alias    string `json:"account_alias,omitempty"`
	IsActive bool   `json:"is_active"`

	TotalSales        float64    `json:"total_sales"`
	TotalOrders       int        `json:"total_orders"`
	ActiveListings    int        `json:"active_listings"`
	LastMetricsUpdate *time.Time `json:"last_metrics_update,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`

	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
}

// DisplayName prefers the user-chosen alias over the marketplace nickname.
func (a MLAccount) DisplayName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Nickname
}

// AccountUpdate is a partial edit of the user-controlled account settings.
// Nil fields are left untouched.
type AccountUpdate struct {
	Alias    *string `json:"account_alias,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// MetricsSnapshot is one pull of marketplace metrics for a single seller.
type MetricsSnapshot struct {
	TotalSales     float64
	TotalOrders    int
	ActiveListings int
}

// AggregateMetrics are the combined dashboard totals over a set of accounts.
type AggregateMetrics struct {
	TotalSales        float64 `json:"total_sales"`
	TotalOrders       int     `json:"total_orders"`
	ActiveListings    int     `json:"active_listings"`
	AccountsCount     int     `json:"accounts_count"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// DailyMetrics is one day's sample for one account. Date is YYYY-MM-DD.
type DailyMetrics struct {
	Date           string  `json:"date"`
	DailySales     float64 `json:"daily_sales"`
	DailyOrders    int     `json:"daily_orders"`
	DailyViews     int     `json:"daily_views"`
	DailyQuestions int     `json:"daily_questions"`
}

// LinkState is a one-shot OAuth state ticket tying a pending marketplace
// authorization back to the user who started it.
type LinkState struct {
	State     string
	UserID    int64
	CreatedAt time.Time
}
