// Package telegram sends optional operator notifications. With no bot
// token or chat id configured every call is a silent no-op.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at a different Telegram endpoint; tests
// use it to capture messages.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = base
	return n
}

// AccountLinked announces a freshly linked seller account.
func (n *Notifier) AccountLinked(ctx context.Context, nickname string) error {
	return n.send(ctx, fmt.Sprintf("New MercadoLibre account linked: %s", nickname))
}

// RefreshFailures reports how many accounts a bulk metrics refresh skipped.
func (n *Notifier) RefreshFailures(ctx context.Context, failed, total int) error {
	if failed == 0 {
		return nil
	}
	return n.send(ctx, fmt.Sprintf("Metrics refresh skipped %d of %d accounts", failed, total))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || text == "" {
		return nil
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)

	raw, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
