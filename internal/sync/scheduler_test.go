package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/upstream"
)

func TestScheduler_TicksAllDomains(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed a watermark so ticks run incrementally instead of repaging
	// history.
	past := time.Now().Add(-time.Hour)
	asOf := "w1"
	require.NoError(t, store.UpdateSyncState(ctx, model.DomainTransactions, model.SyncStatePatch{
		LastFullSyncAt: &past,
		LastSyncAt:     &past,
		LastAsOf:       &asOf,
	}))

	orch := NewOrchestrator(store, client)
	refs := NewRefSyncer(store, client)

	scheduler := NewScheduler(orch, refs, 10*time.Millisecond, 10*time.Millisecond)
	scheduler.Start(ctx)

	require.Eventually(t, func() bool {
		return client.TransactionCallCount() > 0 &&
			client.CategoryCallCount() > 0 &&
			client.TagCallCount() > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
}

func TestScheduler_DisabledIntervalNeverTicks(t *testing.T) {
	store := newTestStore(t)
	client := upstream.NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := NewOrchestrator(store, client)
	refs := NewRefSyncer(store, client)

	scheduler := NewScheduler(orch, refs, 0, 0)
	scheduler.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, client.TransactionCallCount())
	assert.Zero(t, client.CategoryCallCount())
	assert.Zero(t, client.TagCallCount())
}
