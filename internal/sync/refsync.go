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

// RefSyncer keeps the reference collections (categories, tags) fresh. The
// collections are small, so there is no incremental mode: every sync is a
// full repage. Each collection ages independently under its own watermark
// row and single-flight key.
type RefSyncer struct {
	store  service.Storage
	client service.UpstreamClient
	now    func() time.Time
	group  *singleflight.Group
}

// NewRefSyncer creates a reference-data syncer over the given store and
// upstream client.
func NewRefSyncer(store service.Storage, client service.UpstreamClient) *RefSyncer {
	return &RefSyncer{
		store:  store,
		client: client,
		now:    time.Now,
		group:  &singleflight.Group{},
	}
}

// EnsureCategoriesFresh resyncs categories when the last sync is older than
// maxAge.
func (r *RefSyncer) EnsureCategoriesFresh(ctx context.Context, maxAge time.Duration) error {
	return r.ensureFresh(ctx, model.DomainCategories, maxAge, r.SyncCategories)
}

// EnsureTagsFresh resyncs tags when the last sync is older than maxAge.
func (r *RefSyncer) EnsureTagsFresh(ctx context.Context, maxAge time.Duration) error {
	return r.ensureFresh(ctx, model.DomainTags, maxAge, r.SyncTags)
}

func (r *RefSyncer) ensureFresh(ctx context.Context, domain model.SyncDomain, maxAge time.Duration, sync func(context.Context) error) error {
	state, err := r.store.GetSyncState(ctx, domain)
	if err != nil {
		return err
	}
	if state.StaleAfter(maxAge, r.now()) {
		return sync(ctx)
	}
	return nil
}

// SyncCategories repages the full category collection. Concurrent callers
// share the in-flight attempt.
func (r *RefSyncer) SyncCategories(ctx context.Context) error {
	_, err, _ := r.group.Do(string(model.DomainCategories), func() (any, error) {
		return nil, r.runSync(ctx, model.DomainCategories, r.pullCategories)
	})
	return err
}

// SyncTags repages the full tag collection. Concurrent callers share the
// in-flight attempt.
func (r *RefSyncer) SyncTags(ctx context.Context) error {
	_, err, _ := r.group.Do(string(model.DomainTags), func() (any, error) {
		return nil, r.runSync(ctx, model.DomainTags, r.pullTags)
	})
	return err
}

func (r *RefSyncer) runSync(ctx context.Context, domain model.SyncDomain, pull func(context.Context) (string, error)) error {
	if err := r.store.UpdateSyncState(ctx, domain, model.SyncStatePatch{
		Status: statusPtr(model.SyncRunning),
	}); err != nil {
		return err
	}

	lastAsOf, err := pull(ctx)
	if err != nil {
		msg := err.Error()
		if updateErr := r.store.UpdateSyncState(ctx, domain, model.SyncStatePatch{
			Status:    statusPtr(model.SyncError),
			LastError: &msg,
		}); updateErr != nil {
			slog.Error("Failed to record sync error", "domain", domain, "error", updateErr)
		}
		return err
	}

	now := r.now()
	if err := r.store.UpdateSyncState(ctx, domain, model.SyncStatePatch{
		LastAsOf:       &lastAsOf,
		LastFullSyncAt: &now,
		LastSyncAt:     &now,
		Status:         statusPtr(model.SyncOK),
		LastError:      strPtr(""),
	}); err != nil {
		return err
	}

	slog.Debug("Reference data sync complete", "domain", domain, "as_of", lastAsOf)
	return nil
}

func (r *RefSyncer) pullCategories(ctx context.Context) (string, error) {
	var lastAsOf, cursor string
	for {
		batch, err := r.client.ListCategories(ctx, cursor)
		if err != nil {
			return lastAsOf, fmt.Errorf("failed to fetch category page: %w", err)
		}
		if len(batch.Categories) > 0 {
			if err := r.store.UpsertCategories(ctx, batch.Categories); err != nil {
				return lastAsOf, fmt.Errorf("failed to apply category page: %w", err)
			}
		}
		if batch.AsOf != "" {
			lastAsOf = batch.AsOf
		}
		if batch.NextCursor == "" {
			return lastAsOf, nil
		}
		cursor = batch.NextCursor
	}
}

func (r *RefSyncer) pullTags(ctx context.Context) (string, error) {
	var lastAsOf, cursor string
	for {
		batch, err := r.client.ListTags(ctx, cursor)
		if err != nil {
			return lastAsOf, fmt.Errorf("failed to fetch tag page: %w", err)
		}
		if len(batch.Tags) > 0 {
			if err := r.store.UpsertTags(ctx, batch.Tags); err != nil {
				return lastAsOf, fmt.Errorf("failed to apply tag page: %w", err)
			}
		}
		if batch.AsOf != "" {
			lastAsOf = batch.AsOf
		}
		if batch.NextCursor == "" {
			return lastAsOf, nil
		}
		cursor = batch.NextCursor
	}
}
