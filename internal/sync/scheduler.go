package sync

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers periodic background syncs. It calls the same
// orchestrator entry points as on-demand callers, so single-flight
// protection applies uniformly; there is no background-only sync path.
type Scheduler struct {
	orchestrator *Orchestrator
	refs         *RefSyncer
	txnInterval  time.Duration
	refInterval  time.Duration
}

// NewScheduler creates a scheduler with one timer per sync domain.
func NewScheduler(orchestrator *Orchestrator, refs *RefSyncer, txnInterval, refInterval time.Duration) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		refs:         refs,
		txnInterval:  txnInterval,
		refInterval:  refInterval,
	}
}

// Start launches the background timer loops. They run until ctx is
// cancelled; a failed attempt is logged and never affects the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "transactions", s.txnInterval, s.orchestrator.SyncIncremental)
	go s.loop(ctx, "categories", s.refInterval, s.refs.SyncCategories)
	go s.loop(ctx, "tags", s.refInterval, s.refs.SyncTags)
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, sync func(context.Context) error) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sync(ctx); err != nil {
				slog.Warn("Background sync failed", "domain", name, "error", err)
			}
		}
	}
}
