// Package mercadolibre wraps the slice of the MercadoLibre API this system
// needs: seller identity and the cached dashboard metrics.
package mercadolibre

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yerna09/smartselling/internal/domain"
)

// ErrTokenExpired means the stored access token was rejected and needs a
// refresh before the call can be retried.
var ErrTokenExpired = errors.New("mercadolibre token expired")

const userAgent = "SmartSelling-App/1.0"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UserInfo is the seller identity subset kept on a linked account.
type UserInfo struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CountryID string `json:"country_id"`
	SiteID    string `json:"site_id"`

	SellerReputation struct {
		Transactions struct {
			Completed int `json:"completed"`
		} `json:"transactions"`
	} `json:"seller_reputation"`
}

// FetchUser returns the seller profile for one linked account.
func (c *Client) FetchUser(ctx context.Context, accessToken, mlUserID string) (UserInfo, error) {
	var info UserInfo
	path := fmt.Sprintf("/users/%s", mlUserID)
	if err := c.get(ctx, accessToken, path, &info); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}

// FetchMetrics pulls the dashboard metrics for one seller: active listing
// count from the items search paging total, completed transactions from
// seller reputation. Total sales needs the orders API, which this tier of
// ML access does not expose, so it stays zero here and is accumulated
// server-side from daily samples.
func (c *Client) FetchMetrics(ctx context.Context, accessToken, mlUserID string) (domain.MetricsSnapshot, error) {
	user, err := c.FetchUser(ctx, accessToken, mlUserID)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	var items struct {
		Paging struct {
			Total int `json:"total"`
		} `json:"paging"`
	}
	path := fmt.Sprintf("/users/%s/items/search?status=active&limit=1", mlUserID)
	if err := c.get(ctx, accessToken, path, &items); err != nil {
		return domain.MetricsSnapshot{}, err
	}

	return domain.MetricsSnapshot{
		TotalSales:     0,
		TotalOrders:    user.SellerReputation.Transactions.Completed,
		ActiveListings: items.Paging.Total,
	}, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mercadolibre returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
