// Package refresh keeps the local account collection reconciled with the
// server. Every mutating flow is "request, then full re-list": the server
// is the single source of truth for computed metrics, so patching a single
// record risks drift. The extra list request buys consistency.
package refresh

import (
	"context"

	"github.com/yerna09/smartselling/internal/accounts"
	"github.com/yerna09/smartselling/internal/domain"
)

// API is the slice of the SmartSelling client the orchestrator drives.
type API interface {
	ListAccounts(ctx context.Context) ([]domain.MLAccount, error)
	UpdateAccount(ctx context.Context, id int64, update domain.AccountUpdate) (domain.MLAccount, error)
	DeleteAccount(ctx context.Context, id int64) error
	RefreshAccount(ctx context.Context, id int64) error
	RefreshAll(ctx context.Context) (int, error)
	BeginLink(ctx context.Context) (string, error)
	CompleteLink(ctx context.Context, code, state string) error
	DailyMetrics(ctx context.Context, id int64) ([]domain.DailyMetrics, error)
}

type Orchestrator struct {
	api   API
	store *accounts.Store
}

func NewOrchestrator(api API, store *accounts.Store) *Orchestrator {
	return &Orchestrator{api: api, store: store}
}

// Load fetches the full account list into the collection. The ticket is
// taken before the request goes out, so if a later operation finishes
// first, this response is discarded instead of rolling the collection back.
func (o *Orchestrator) Load(ctx context.Context) error {
	ticket := o.store.BeginReplace()
	list, err := o.api.ListAccounts(ctx)
	if err != nil {
		return err
	}
	o.store.CommitReplace(ticket, list)
	return nil
}

// Reset drops the local collection and invalidates in-flight replaces.
func (o *Orchestrator) Reset() {
	o.store.Reset()
}

// RefreshOne triggers a metrics refresh for one account and reconciles with
// a full re-list. On any failure the collection is left untouched; the
// cached (stale) metrics stay visible.
func (o *Orchestrator) RefreshOne(ctx context.Context, id int64) error {
	ticket := o.store.BeginReplace()
	if err := o.api.RefreshAccount(ctx, id); err != nil {
		return err
	}
	list, err := o.api.ListAccounts(ctx)
	if err != nil {
		return err
	}
	o.store.CommitReplace(ticket, list)
	return nil
}

// RefreshAll triggers a bulk refresh, reconciles, and returns the server's
// updated-account count. Same all-or-nothing contract as RefreshOne.
func (o *Orchestrator) RefreshAll(ctx context.Context) (int, error) {
	ticket := o.store.BeginReplace()
	count, err := o.api.RefreshAll(ctx)
	if err != nil {
		return 0, err
	}
	list, err := o.api.ListAccounts(ctx)
	if err != nil {
		return count, err
	}
	o.store.CommitReplace(ticket, list)
	return count, nil
}

// EditAccount saves alias/active changes and installs the server's returned
// record. No re-list: the edit response is the authoritative record, and
// metric fields are untouched by this operation.
func (o *Orchestrator) EditAccount(ctx context.Context, id int64, update domain.AccountUpdate) (domain.MLAccount, error) {
	updated, err := o.api.UpdateAccount(ctx, id, update)
	if err != nil {
		return domain.MLAccount{}, err
	}
	o.store.Update(updated)
	return updated, nil
}

// Unlink removes the account server-side first; the local record only goes
// away once the server confirmed.
func (o *Orchestrator) Unlink(ctx context.Context, id int64) error {
	if err := o.api.DeleteAccount(ctx, id); err != nil {
		return err
	}
	o.store.Remove(id)
	return nil
}

// BeginLink returns the marketplace authorization URL for the user.
func (o *Orchestrator) BeginLink(ctx context.Context) (string, error) {
	return o.api.BeginLink(ctx)
}

// CompleteLink finishes the OAuth flow and pulls the fresh list, which now
// contains the newly linked account.
func (o *Orchestrator) CompleteLink(ctx context.Context, code, state string) error {
	if err := o.api.CompleteLink(ctx, code, state); err != nil {
		return err
	}
	return o.Load(ctx)
}

// DailyMetrics fetches the cached per-day series for one account.
func (o *Orchestrator) DailyMetrics(ctx context.Context, id int64) ([]domain.DailyMetrics, error) {
	return o.api.DailyMetrics(ctx, id)
}
