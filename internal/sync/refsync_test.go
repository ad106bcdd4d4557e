package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"
	"github.com/ledgermirror/ledgerd/internal/upstream"
)

func TestSyncCategories_FullRepage(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx := context.Background()

	pages := map[string]*service.CategoryBatch{
		"": {
			Categories: []model.Category{
				{ID: "1", Name: "Groceries", Type: "EXPENSE"},
				{ID: "2", Name: "Coffee Shops", Type: "EXPENSE"},
			},
			NextCursor: "p2",
			AsOf:       "c1",
		},
		"p2": {
			Categories: []model.Category{{ID: "3", Name: "Rent", Type: "EXPENSE"}},
			AsOf:       "c2",
		},
	}
	client.ListCategoriesFn = func(_ context.Context, cursor string) (*service.CategoryBatch, error) {
		return pages[cursor], nil
	}

	refs := NewRefSyncer(store, client)
	require.NoError(t, refs.SyncCategories(ctx))

	assert.Equal(t, 2, client.ListCategoriesCalls)

	categories, err := store.ListCategories(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, categories, 3)

	state, err := store.GetSyncState(ctx, model.DomainCategories)
	require.NoError(t, err)
	assert.Equal(t, model.SyncOK, state.Status)
	assert.Equal(t, "c2", state.LastAsOf)
	assert.False(t, state.LastFullSyncAt.IsZero())
}

func TestSyncTags_FullRepage(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx := context.Background()

	client.ListTagsFn = func(_ context.Context, cursor string) (*service.TagBatch, error) {
		return &service.TagBatch{
			Tags: []model.Tag{{ID: "t1", Name: "vacation", UseCount: 3}},
			AsOf: "g1",
		}, nil
	}

	refs := NewRefSyncer(store, client)
	require.NoError(t, refs.SyncTags(ctx))

	tags, err := store.ListTags(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "vacation", tags[0].Name)

	state, err := store.GetSyncState(ctx, model.DomainTags)
	require.NoError(t, err)
	assert.Equal(t, model.SyncOK, state.Status)
}

func TestEnsureCategoriesFresh_NoopWhenFresh(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.UpdateSyncState(ctx, model.DomainCategories, model.SyncStatePatch{
		LastFullSyncAt: &now,
		LastSyncAt:     &now,
		Status:         statusPtr(model.SyncOK),
	}))

	refs := NewRefSyncer(store, client)
	require.NoError(t, refs.EnsureCategoriesFresh(ctx, 24*time.Hour))
	assert.Zero(t, client.ListCategoriesCalls)

	// Zero max age forces a resync even when fresh.
	require.NoError(t, refs.EnsureCategoriesFresh(ctx, 0))
	assert.Equal(t, 1, client.ListCategoriesCalls)
}

func TestEnsureTagsFresh_SyncsWhenNeverSynced(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx := context.Background()

	refs := NewRefSyncer(store, client)
	require.NoError(t, refs.EnsureTagsFresh(ctx, 24*time.Hour))
	assert.Equal(t, 1, client.ListTagsCalls)
}

func TestSyncCategories_FailureRecordsError(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx := context.Background()

	boom := errors.New("upstream timeout")
	client.ListCategoriesFn = func(_ context.Context, _ string) (*service.CategoryBatch, error) {
		return nil, boom
	}

	refs := NewRefSyncer(store, client)
	err := refs.SyncCategories(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	state, getErr := store.GetSyncState(ctx, model.DomainCategories)
	require.NoError(t, getErr)
	assert.Equal(t, model.SyncError, state.Status)
	assert.Contains(t, state.LastError, "upstream timeout")
	assert.False(t, state.HasSynced())
}
