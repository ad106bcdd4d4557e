package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"
)

// GetSyncState reads the singleton watermark record for a domain. When no
// record exists yet (first run), it returns zero-value defaults with status
// idle rather than an error.
func (s *SQLiteStorage) GetSyncState(ctx context.Context, domain model.SyncDomain) (*model.SyncState, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDomain(domain); err != nil {
		return nil, err
	}

	var state model.SyncState
	var anchorDate, lastFullSyncAt, lastSyncAt sql.NullTime
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT anchor_date, last_as_of, last_full_sync_at, last_sync_at,
		       status, last_error
		FROM sync_state
		WHERE domain = ?
	`, string(domain)).Scan(
		&anchorDate,
		&state.LastAsOf,
		&lastFullSyncAt,
		&lastSyncAt,
		&status,
		&state.LastError,
	)

	if err == sql.ErrNoRows {
		return &model.SyncState{Domain: domain, Status: model.SyncIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	switch model.SyncStatus(status) {
	case model.SyncIdle, model.SyncRunning, model.SyncOK, model.SyncError:
	default:
		return nil, fmt.Errorf("%w: unknown status %q for domain %s", common.ErrMalformedState, status, domain)
	}

	state.Domain = domain
	state.Status = model.SyncStatus(status)
	if anchorDate.Valid {
		state.AnchorDate = anchorDate.Time
	}
	if lastFullSyncAt.Valid {
		state.LastFullSyncAt = lastFullSyncAt.Time
	}
	if lastSyncAt.Valid {
		state.LastSyncAt = lastSyncAt.Time
	}

	return &state, nil
}

// UpdateSyncState applies a partial update to a domain's watermark record,
// creating the singleton row on first use. Only non-nil patch fields change.
func (s *SQLiteStorage) UpdateSyncState(ctx context.Context, domain model.SyncDomain, patch model.SyncStatePatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDomain(domain); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The row must exist before the partial update can target it.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_state (domain) VALUES (?)
		ON CONFLICT(domain) DO NOTHING
	`, string(domain))
	if err != nil {
		return fmt.Errorf("failed to ensure sync state row: %w", err)
	}

	var sets []string
	var args []any

	if patch.AnchorDate != nil {
		sets = append(sets, "anchor_date = ?")
		args = append(args, *patch.AnchorDate)
	}
	if patch.LastAsOf != nil {
		sets = append(sets, "last_as_of = ?")
		args = append(args, *patch.LastAsOf)
	}
	if patch.LastFullSyncAt != nil {
		sets = append(sets, "last_full_sync_at = ?")
		args = append(args, *patch.LastFullSyncAt)
	}
	if patch.LastSyncAt != nil {
		sets = append(sets, "last_sync_at = ?")
		args = append(args, *patch.LastSyncAt)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *patch.LastError)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now())
		args = append(args, string(domain))

		query := fmt.Sprintf("UPDATE sync_state SET %s WHERE domain = ?", strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update sync state: %w", err)
		}
	}

	return tx.Commit()
}
