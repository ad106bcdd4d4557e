// Package sync implements the synchronization engine that keeps the local
// cache acceptably fresh against the upstream ledger.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"

	"golang.org/x/sync/singleflight"
)

// Orchestrator drives full and incremental transaction syncs. All entry
// points funnel through one single-flight group keyed by sync domain, so
// concurrent callers share an in-flight sync instead of issuing redundant
// upstream pulls. The orchestrator holds no state of its own beyond that
// guard; watermarks live in the store.
type Orchestrator struct {
	store  service.Storage
	client service.UpstreamClient
	now    func() time.Time
	group  *singleflight.Group
}

// NewOrchestrator creates a sync orchestrator over the given store and
// upstream client.
func NewOrchestrator(store service.Storage, client service.UpstreamClient) *Orchestrator {
	return &Orchestrator{
		store:  store,
		client: client,
		now:    time.Now,
		group:  &singleflight.Group{},
	}
}

// EnsureInitialized performs a full sync if none has ever completed,
// otherwise it is a no-op. Callers typically run it detached at process
// start so server readiness does not block on the initial pull.
func (o *Orchestrator) EnsureInitialized(ctx context.Context) error {
	state, err := o.store.GetSyncState(ctx, model.DomainTransactions)
	if err != nil {
		return err
	}
	if !state.LastFullSyncAt.IsZero() {
		return nil
	}
	return o.SyncFull(ctx)
}

// EnsureFresh is the freshness gate every read and write operation passes
// through. A never-synced cache gets a full sync, a stale one an incremental
// sync, and a fresh one proceeds without touching the single-flight guard.
func (o *Orchestrator) EnsureFresh(ctx context.Context, maxStale time.Duration) error {
	state, err := o.store.GetSyncState(ctx, model.DomainTransactions)
	if err != nil {
		return err
	}

	if !state.HasSynced() {
		return o.SyncFull(ctx)
	}
	if state.StaleAfter(maxStale, o.now()) {
		return o.SyncIncremental(ctx)
	}
	return nil
}

// SyncFull pulls the entire transaction history from the anchor date
// forward. Concurrent callers observe the same in-flight attempt's result.
func (o *Orchestrator) SyncFull(ctx context.Context) error {
	_, err, _ := o.group.Do(string(model.DomainTransactions), func() (any, error) {
		return nil, o.runFull(ctx)
	})
	return err
}

// SyncIncremental pulls only records modified after the stored watermark,
// degrading to a full sync when no watermark exists yet.
func (o *Orchestrator) SyncIncremental(ctx context.Context) error {
	_, err, _ := o.group.Do(string(model.DomainTransactions), func() (any, error) {
		return nil, o.runIncremental(ctx)
	})
	return err
}

func (o *Orchestrator) runFull(ctx context.Context) error {
	state, err := o.store.GetSyncState(ctx, model.DomainTransactions)
	if err != nil {
		return err
	}

	if err := o.markRunning(ctx, model.DomainTransactions); err != nil {
		return err
	}

	anchor := state.AnchorDate
	if anchor.IsZero() {
		anchor, err = o.client.EarliestTransactionDate(ctx)
		if err != nil {
			return o.fail(ctx, model.DomainTransactions, fmt.Errorf("failed to determine anchor date: %w", err))
		}
		if err := o.store.UpdateSyncState(ctx, model.DomainTransactions, model.SyncStatePatch{
			AnchorDate: &anchor,
		}); err != nil {
			return o.fail(ctx, model.DomainTransactions, err)
		}
	}

	slog.Info("Starting full transaction sync", "anchor", anchor.Format("2006-01-02"))

	lastAsOf, pages, err := o.pullPages(ctx, service.ListOptions{Start: &anchor})
	if err != nil {
		return o.fail(ctx, model.DomainTransactions, err)
	}

	now := o.now()
	if err := o.store.UpdateSyncState(ctx, model.DomainTransactions, model.SyncStatePatch{
		LastAsOf:       &lastAsOf,
		LastFullSyncAt: &now,
		LastSyncAt:     &now,
		Status:         statusPtr(model.SyncOK),
		LastError:      strPtr(""),
	}); err != nil {
		return err
	}

	slog.Info("Full transaction sync complete", "pages", pages, "as_of", lastAsOf)
	return nil
}

func (o *Orchestrator) runIncremental(ctx context.Context) error {
	state, err := o.store.GetSyncState(ctx, model.DomainTransactions)
	if err != nil {
		return err
	}

	// Incremental sync needs a baseline watermark; without one the only
	// correct behavior is a full pull.
	if state.LastAsOf == "" {
		return o.runFull(ctx)
	}

	if err := o.markRunning(ctx, model.DomainTransactions); err != nil {
		return err
	}

	slog.Debug("Starting incremental transaction sync", "since", state.LastAsOf)

	lastAsOf, pages, err := o.pullPages(ctx, service.ListOptions{ModifiedSince: state.LastAsOf})
	if err != nil {
		return o.fail(ctx, model.DomainTransactions, err)
	}
	if lastAsOf == "" {
		lastAsOf = state.LastAsOf
	}

	now := o.now()
	if err := o.store.UpdateSyncState(ctx, model.DomainTransactions, model.SyncStatePatch{
		LastAsOf:   &lastAsOf,
		LastSyncAt: &now,
		Status:     statusPtr(model.SyncOK),
		LastError:  strPtr(""),
	}); err != nil {
		return err
	}

	slog.Debug("Incremental transaction sync complete", "pages", pages, "as_of", lastAsOf)
	return nil
}

// pullPages fetches and applies upstream pages strictly in continuation
// order, each page upserted as one atomic batch. It returns the last
// server-reported watermark across fully applied pages.
func (o *Orchestrator) pullPages(ctx context.Context, opts service.ListOptions) (string, int, error) {
	var lastAsOf string
	pages := 0

	for {
		batch, err := o.client.ListTransactions(ctx, opts)
		if err != nil {
			return lastAsOf, pages, fmt.Errorf("failed to fetch transaction page: %w", err)
		}

		if len(batch.Transactions) > 0 {
			if err := o.store.UpsertTransactions(ctx, batch.Transactions); err != nil {
				return lastAsOf, pages, fmt.Errorf("failed to apply transaction page: %w", err)
			}
		}
		pages++

		// The watermark only advances once the page is committed.
		if batch.AsOf != "" {
			lastAsOf = batch.AsOf
		}

		if batch.NextCursor == "" {
			return lastAsOf, pages, nil
		}
		opts.Cursor = batch.NextCursor
	}
}

// markRunning labels the domain as having a sync in progress. The label is
// informational; mutual exclusion comes from the single-flight group.
func (o *Orchestrator) markRunning(ctx context.Context, domain model.SyncDomain) error {
	return o.store.UpdateSyncState(ctx, domain, model.SyncStatePatch{
		Status: statusPtr(model.SyncRunning),
	})
}

// fail records the error on the domain's watermark state and propagates it.
func (o *Orchestrator) fail(ctx context.Context, domain model.SyncDomain, syncErr error) error {
	msg := syncErr.Error()
	if err := o.store.UpdateSyncState(ctx, domain, model.SyncStatePatch{
		Status:    statusPtr(model.SyncError),
		LastError: &msg,
	}); err != nil {
		slog.Error("Failed to record sync error", "domain", domain, "error", err)
	}
	return syncErr
}

func statusPtr(s model.SyncStatus) *model.SyncStatus {
	return &s
}

func strPtr(s string) *string {
	return &s
}
