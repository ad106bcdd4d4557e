package model

import "time"

// SyncDomain names an independently aged sync scope. Each domain owns one
// singleton SyncState row.
type SyncDomain string

// The sync domains the engine tracks.
const (
	DomainTransactions SyncDomain = "transactions"
	DomainCategories   SyncDomain = "categories"
	DomainTags         SyncDomain = "tags"
)

// SyncStatus labels the most recent sync attempt for a domain. It is a
// label only; mutual exclusion is enforced by the orchestrator, not by this
// value.
type SyncStatus string

// Sync status values.
const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "running"
	SyncOK      SyncStatus = "ok"
	SyncError   SyncStatus = "error"
)

// SyncState is the singleton watermark record for one sync domain. A domain
// that has never synced is represented by the zero value (status idle, no
// timestamps).
type SyncState struct {
	AnchorDate     time.Time
	LastFullSyncAt time.Time
	LastSyncAt     time.Time
	Domain         SyncDomain
	LastAsOf       string
	LastError      string
	Status         SyncStatus
}

// HasSynced reports whether any sync has ever completed for the domain.
func (s *SyncState) HasSynced() bool {
	return !s.LastSyncAt.IsZero()
}

// StaleAfter reports whether the domain's last completed sync is older than
// maxStale as of now. A domain that has never synced is always stale.
func (s *SyncState) StaleAfter(maxStale time.Duration, now time.Time) bool {
	if !s.HasSynced() {
		return true
	}
	return now.Sub(s.LastSyncAt) > maxStale
}

// SyncStatePatch is a partial update to a SyncState; only non-nil fields are
// applied.
type SyncStatePatch struct {
	AnchorDate     *time.Time
	LastFullSyncAt *time.Time
	LastSyncAt     *time.Time
	LastAsOf       *string
	LastError      *string
	Status         *SyncStatus
}
