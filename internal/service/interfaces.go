// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgermirror/ledgerd/internal/model"
)

// Pagination limits enforced by the cache store.
const (
	MaxPageLimit      = 200
	MaxMerchantLimit  = 200
	MaxSuggestLimit   = 20
	MaxRefDataLimit   = 5000
	DefaultPageLimit  = 50
	DefaultRefLimit   = 1000
	DefaultSuggestCap = 10
)

// TransactionFilter defines filtering options for transaction queries. All
// set predicates combine with logical AND. Soft-deleted rows are excluded
// unless IncludeDeleted is set.
type TransactionFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	AccountID      string
	State          string
	CoaType        string
	CoaID          string
	IncludeDeleted bool
}

// TransactionPage is one page of a filtered transaction query. Total counts
// every row matching the filter, not just this page. NextCursor is empty on
// the final page.
type TransactionPage struct {
	NextCursor string
	Items      []model.Transaction
	Total      int
}

// MerchantMatchMode selects how a merchant name is matched when aggregating
// historical category usage.
type MerchantMatchMode string

// Merchant match modes.
const (
	MatchExact    MerchantMatchMode = "exact"
	MatchContains MerchantMatchMode = "contains"
)

// Storage defines the contract for the persistence layer. It is the single
// source of truth for reads; nothing here touches the network.
type Storage interface {
	// Transaction operations
	UpsertTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter, cursor string, limit int) (*TransactionPage, error)
	SearchTransactions(ctx context.Context, filter TransactionFilter, searchTerm, cursor string, limit int) (*TransactionPage, error)
	ListUncategorizedTransactions(ctx context.Context, filter TransactionFilter, cursor string, limit int) (*TransactionPage, error)

	// Aggregations
	SearchMerchants(ctx context.Context, query string, limit int, includeDeleted bool) ([]model.MerchantCount, error)
	SuggestCategoriesForMerchant(ctx context.Context, merchant string, mode MerchantMatchMode, limit int, includeDeleted bool) ([]model.CategorySuggestion, error)

	// Reference data operations
	UpsertCategories(ctx context.Context, categories []model.Category) error
	ListCategories(ctx context.Context, query string, limit int) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	UpsertTags(ctx context.Context, tags []model.Tag) error
	ListTags(ctx context.Context, query string, limit int) ([]model.Tag, error)

	// Sync watermark state
	GetSyncState(ctx context.Context, domain model.SyncDomain) (*model.SyncState, error)
	UpdateSyncState(ctx context.Context, domain model.SyncDomain, patch model.SyncStatePatch) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ListOptions filter a paginated upstream transaction fetch. At most one of
// Start and ModifiedSince is set: Start anchors a full pull, ModifiedSince
// an incremental one. Cursor continues a prior page.
type ListOptions struct {
	Start         *time.Time
	ModifiedSince string
	Cursor        string
}

// TransactionBatch is one upstream page of transactions. NextCursor is empty
// when no further pages exist. AsOf is the server-reported watermark for the
// page.
type TransactionBatch struct {
	NextCursor   string
	AsOf         string
	Transactions []model.Transaction
}

// CategoryBatch is one upstream page of categories.
type CategoryBatch struct {
	NextCursor string
	AsOf       string
	Categories []model.Category
}

// TagBatch is one upstream page of tags.
type TagBatch struct {
	NextCursor string
	AsOf       string
	Tags       []model.Tag
}

// UpstreamClient defines the contract for the remote account-aggregation
// service the sync engine pulls from. Implementations do not retry; failures
// surface to the caller.
type UpstreamClient interface {
	ListTransactions(ctx context.Context, opts ListOptions) (*TransactionBatch, error)
	ListCategories(ctx context.Context, cursor string) (*CategoryBatch, error)
	ListTags(ctx context.Context, cursor string) (*TagBatch, error)
	UpdateTransaction(ctx context.Context, id string, payload map[string]any) error
	EarliestTransactionDate(ctx context.Context) (time.Time, error)
}
