package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/ledgermirror/ledgerd/internal/service"
)

// MockClient is a mock implementation of service.UpstreamClient for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	ListTransactionsFn        func(ctx context.Context, opts service.ListOptions) (*service.TransactionBatch, error)
	ListCategoriesFn          func(ctx context.Context, cursor string) (*service.CategoryBatch, error)
	ListTagsFn                func(ctx context.Context, cursor string) (*service.TagBatch, error)
	UpdateTransactionFn       func(ctx context.Context, id string, payload map[string]any) error
	EarliestTransactionDateFn func(ctx context.Context) (time.Time, error)

	// Call tracking
	ListTransactionsCalls        []service.ListOptions
	ListCategoriesCalls          int
	ListTagsCalls                int
	UpdateTransactionCalls       []UpdateTransactionCall
	EarliestTransactionDateCalls int

	mu sync.Mutex
}

// UpdateTransactionCall records the parameters of an UpdateTransaction call.
type UpdateTransactionCall struct {
	Payload map[string]any
	ID      string
}

// NewMockClient creates a new mock upstream client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ListTransactions implements UpstreamClient.ListTransactions.
func (m *MockClient) ListTransactions(ctx context.Context, opts service.ListOptions) (*service.TransactionBatch, error) {
	m.mu.Lock()
	m.ListTransactionsCalls = append(m.ListTransactionsCalls, opts)
	m.mu.Unlock()

	if m.ListTransactionsFn != nil {
		return m.ListTransactionsFn(ctx, opts)
	}
	return &service.TransactionBatch{}, nil
}

// ListCategories implements UpstreamClient.ListCategories.
func (m *MockClient) ListCategories(ctx context.Context, cursor string) (*service.CategoryBatch, error) {
	m.mu.Lock()
	m.ListCategoriesCalls++
	m.mu.Unlock()

	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, cursor)
	}
	return &service.CategoryBatch{}, nil
}

// ListTags implements UpstreamClient.ListTags.
func (m *MockClient) ListTags(ctx context.Context, cursor string) (*service.TagBatch, error) {
	m.mu.Lock()
	m.ListTagsCalls++
	m.mu.Unlock()

	if m.ListTagsFn != nil {
		return m.ListTagsFn(ctx, cursor)
	}
	return &service.TagBatch{}, nil
}

// UpdateTransaction implements UpstreamClient.UpdateTransaction.
func (m *MockClient) UpdateTransaction(ctx context.Context, id string, payload map[string]any) error {
	m.mu.Lock()
	m.UpdateTransactionCalls = append(m.UpdateTransactionCalls, UpdateTransactionCall{ID: id, Payload: payload})
	m.mu.Unlock()

	if m.UpdateTransactionFn != nil {
		return m.UpdateTransactionFn(ctx, id, payload)
	}
	return nil
}

// EarliestTransactionDate implements UpstreamClient.EarliestTransactionDate.
func (m *MockClient) EarliestTransactionDate(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	m.EarliestTransactionDateCalls++
	m.mu.Unlock()

	if m.EarliestTransactionDateFn != nil {
		return m.EarliestTransactionDateFn(ctx)
	}
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

// TransactionCallCount returns how many transaction page fetches the mock
// has served. Safe for concurrent use.
func (m *MockClient) TransactionCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ListTransactionsCalls)
}

// CategoryCallCount returns how many category page fetches the mock has
// served. Safe for concurrent use.
func (m *MockClient) CategoryCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCategoriesCalls
}

// TagCallCount returns how many tag page fetches the mock has served. Safe
// for concurrent use.
func (m *MockClient) TagCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListTagsCalls
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListTransactionsCalls = nil
	m.ListCategoriesCalls = 0
	m.ListTagsCalls = 0
	m.UpdateTransactionCalls = nil
	m.EarliestTransactionDateCalls = 0
}

// Ensure MockClient implements the UpstreamClient interface.
var _ service.UpstreamClient = (*MockClient)(nil)
