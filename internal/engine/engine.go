// Package engine exposes the tool-facing operations over the cached ledger:
// reads gated by the freshness policy, aggregations, and deep-merge
// write-back.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"
	ledgersync "github.com/ledgermirror/ledgerd/internal/sync"
)

// Options configure the staleness windows for the freshness gates.
type Options struct {
	TransactionMaxStale time.Duration
	RefDataMaxAge       time.Duration
}

// DefaultOptions returns the staleness windows used when none are
// configured.
func DefaultOptions() Options {
	return Options{
		TransactionMaxStale: 5 * time.Minute,
		RefDataMaxAge:       24 * time.Hour,
	}
}

// Engine wires the cache store, sync orchestrator and upstream client into
// the operations the tool layer invokes.
type Engine struct {
	store        service.Storage
	orchestrator *ledgersync.Orchestrator
	refs         *ledgersync.RefSyncer
	client       service.UpstreamClient
	opts         Options
}

// New creates an engine over the given collaborators.
func New(store service.Storage, orchestrator *ledgersync.Orchestrator, refs *ledgersync.RefSyncer, client service.UpstreamClient, opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.TransactionMaxStale <= 0 {
		opts.TransactionMaxStale = defaults.TransactionMaxStale
	}
	if opts.RefDataMaxAge <= 0 {
		opts.RefDataMaxAge = defaults.RefDataMaxAge
	}
	return &Engine{
		store:        store,
		orchestrator: orchestrator,
		refs:         refs,
		client:       client,
		opts:         opts,
	}
}

// ListParams are the shared parameters of the paged list operations.
type ListParams struct {
	Filter       service.TransactionFilter
	Cursor       string
	Limit        int
	ForceRefresh bool
}

// List returns one page of cached transactions after passing the freshness
// gate.
func (e *Engine) List(ctx context.Context, params ListParams) (*service.TransactionPage, error) {
	if err := e.freshenTransactions(ctx, params.ForceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListTransactions(ctx, params.Filter, params.Cursor, params.Limit)
}

// Search returns one page of cached transactions matching a free-text term
// across the payee and memo fields.
func (e *Engine) Search(ctx context.Context, query string, params ListParams) (*service.TransactionPage, error) {
	if err := e.freshenTransactions(ctx, params.ForceRefresh); err != nil {
		return nil, err
	}
	return e.store.SearchTransactions(ctx, params.Filter, query, params.Cursor, params.Limit)
}

// ListUncategorized returns one page of cached transactions with no
// resolved classification.
func (e *Engine) ListUncategorized(ctx context.Context, params ListParams) (*service.TransactionPage, error) {
	if err := e.freshenTransactions(ctx, params.ForceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListUncategorizedTransactions(ctx, params.Filter, params.Cursor, params.Limit)
}

// GetByID returns a cached transaction. With refreshOnMiss, a miss triggers
// exactly one incremental sync before the second lookup; a record that only
// arrives across a full-resync boundary (backdated before the stored
// anchor) still reports not-found.
func (e *Engine) GetByID(ctx context.Context, id string, refreshOnMiss bool) (*model.Transaction, error) {
	txn, err := e.store.GetTransactionByID(ctx, id)
	if err == nil || !errors.Is(err, common.ErrNotFound) || !refreshOnMiss {
		return txn, err
	}

	if syncErr := e.orchestrator.SyncIncremental(ctx); syncErr != nil {
		return nil, syncErr
	}
	return e.store.GetTransactionByID(ctx, id)
}

// SearchMerchants aggregates cached transactions by merchant frequency.
func (e *Engine) SearchMerchants(ctx context.Context, query string, limit int, includeDeleted bool) ([]model.MerchantCount, error) {
	if err := e.freshenTransactions(ctx, false); err != nil {
		return nil, err
	}
	return e.store.SearchMerchants(ctx, query, limit, includeDeleted)
}

// SuggestCategoriesForMerchant reports the classifications historically used
// for a merchant. With refreshCategories, the category cache is resynced
// first so names resolve against current reference data.
func (e *Engine) SuggestCategoriesForMerchant(ctx context.Context, merchant string, mode service.MerchantMatchMode, limit int, refreshCategories bool) ([]model.CategorySuggestion, error) {
	if mode == "" {
		mode = service.MatchExact
	}
	maxAge := e.opts.RefDataMaxAge
	if refreshCategories {
		maxAge = 0
	}
	if err := e.refs.EnsureCategoriesFresh(ctx, maxAge); err != nil {
		slog.Warn("Serving cached categories, refresh failed", "error", err)
	}
	return e.store.SuggestCategoriesForMerchant(ctx, merchant, mode, limit, false)
}

// ListCategories returns the cached categories after the reference-data
// freshness gate.
func (e *Engine) ListCategories(ctx context.Context, limit int, forceRefresh bool) ([]model.Category, error) {
	if err := e.freshenCategories(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListCategories(ctx, "", limit)
}

// SearchCategories returns cached categories whose name contains the query.
func (e *Engine) SearchCategories(ctx context.Context, query string, limit int, forceRefresh bool) ([]model.Category, error) {
	if err := e.freshenCategories(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListCategories(ctx, query, limit)
}

// GetCategoryByID returns a single cached category after the reference-data
// freshness gate.
func (e *Engine) GetCategoryByID(ctx context.Context, id string, forceRefresh bool) (*model.Category, error) {
	if err := e.freshenCategories(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return e.store.GetCategoryByID(ctx, id)
}

// ListTags returns the cached tags after the reference-data freshness gate.
func (e *Engine) ListTags(ctx context.Context, limit int, forceRefresh bool) ([]model.Tag, error) {
	if err := e.freshenTags(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListTags(ctx, "", limit)
}

// SearchTags returns cached tags whose name contains the query.
func (e *Engine) SearchTags(ctx context.Context, query string, limit int, forceRefresh bool) ([]model.Tag, error) {
	if err := e.freshenTags(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return e.store.ListTags(ctx, query, limit)
}

// freshenTransactions applies the staleness policy before a read. A forced
// refresh must succeed; a routine one may fail and still serve cached data,
// since stale-but-available beats unavailable.
func (e *Engine) freshenTransactions(ctx context.Context, force bool) error {
	if force {
		return e.orchestrator.EnsureFresh(ctx, 0)
	}
	if err := e.orchestrator.EnsureFresh(ctx, e.opts.TransactionMaxStale); err != nil {
		slog.Warn("Serving cached transactions, refresh failed", "error", err)
	}
	return nil
}

func (e *Engine) freshenCategories(ctx context.Context, force bool) error {
	if force {
		return e.refs.SyncCategories(ctx)
	}
	if err := e.refs.EnsureCategoriesFresh(ctx, e.opts.RefDataMaxAge); err != nil {
		slog.Warn("Serving cached categories, refresh failed", "error", err)
	}
	return nil
}

func (e *Engine) freshenTags(ctx context.Context, force bool) error {
	if force {
		return e.refs.SyncTags(ctx)
	}
	if err := e.refs.EnsureTagsFresh(ctx, e.opts.RefDataMaxAge); err != nil {
		slog.Warn("Serving cached tags, refresh failed", "error", err)
	}
	return nil
}
