package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/yerna09/smartselling/internal/domain"
)

// Client talks to the SmartSelling API. The session credential is a cookie
// set by login/register, kept in the client's jar, so a single Client holds
// exactly one session. Requests carry a fixed timeout and are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// Profile fetches the current identity, if any.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.User, error) {
	body := map[string]string{"username": username, "password": password}
	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/login", body, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) Register(ctx context.Context, username, password string) (domain.User, error) {
	body := map[string]string{"username": username, "password": password}
	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/register", body, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.MLAccount, error) {
	var resp struct {
		Accounts []domain.MLAccount `json:"accounts"`
		Total    int                `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/ml-accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// UpdateAccount edits alias and active flag; the server returns the full
// updated record.
func (c *Client) UpdateAccount(ctx context.Context, id int64, update domain.AccountUpdate) (domain.MLAccount, error) {
	var account domain.MLAccount
	path := fmt.Sprintf("/ml-accounts/%d", id)
	if err := c.do(ctx, http.MethodPut, path, update, &account); err != nil {
		return domain.MLAccount{}, err
	}
	return account, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/ml-accounts/%d", id), nil, nil)
}

// RefreshAccount asks the server to re-pull marketplace metrics for one
// account. Callers re-list afterwards; the response body is not the new
// collection.
func (c *Client) RefreshAccount(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/ml-accounts/%d/refresh-metrics", id), nil, nil)
}

// RefreshAll triggers a bulk metrics refresh and returns how many accounts
// the server managed to update.
func (c *Client) RefreshAll(ctx context.Context) (int, error) {
	var resp struct {
		UpdatedCount  int `json:"updated_count"`
		TotalAccounts int `json:"total_accounts"`
	}
	if err := c.do(ctx, http.MethodPost, "/ml-accounts/refresh-all-metrics", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UpdatedCount, nil
}

func (c *Client) DailyMetrics(ctx context.Context, id int64) ([]domain.DailyMetrics, error) {
	var resp struct {
		Metrics []domain.DailyMetrics `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/ml-accounts/%d/daily-metrics", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

// BeginLink returns the marketplace authorization URL the user must be sent
// to. The linking flow itself happens outside this client.
func (c *Client) BeginLink(ctx context.Context) (string, error) {
	var resp struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/mercadolibre/auth", nil, &resp); err != nil {
		return "", err
	}
	return resp.AuthURL, nil
}

// CompleteLink hands the OAuth redirect parameters back to the server,
// which exchanges the code and stores the new linked account.
func (c *Client) CompleteLink(ctx context.Context, code, state string) error {
	q := url.Values{}
	q.Set("code", code)
	q.Set("state", state)
	return c.do(ctx, http.MethodGet, "/mercadolibre/callback?"+q.Encode(), nil, nil)
}

// do issues one request and normalizes every failure into *Error. A non-2xx
// body is read as {"message": ...} JSON when possible, free text otherwise.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindMalformed, Message: "could not encode request body", cause: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return connectionError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp.StatusCode, readErrorMessage(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformedError(err)
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "<!DOCTYPE") || strings.HasPrefix(text, "<html") {
		// Proxy error pages and the like.
		return ""
	}
	return text
}
