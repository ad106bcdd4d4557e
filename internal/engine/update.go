package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"

	"github.com/google/uuid"
)

// Scalar fields the upstream write contract requires on every submitted
// record. The classification object is validated separately.
var requiredWriteFields = []string{
	"id",
	"clientId",
	"accountId",
	"postedOn",
	"payee",
	"amount",
	"state",
	"matchState",
	"source",
	"type",
}

// Update applies a partial patch to a cached transaction and writes the
// merged record back upstream. The last local read is the merge base; there
// is no conflict resolution for concurrent edits. Validation runs before
// any network call. On success the engine forces an incremental resync and
// returns the freshly cached record.
func (e *Engine) Update(ctx context.Context, id string, patch map[string]any) (*model.Transaction, error) {
	if err := e.freshenTransactions(ctx, false); err != nil {
		return nil, err
	}

	txn, err := e.store.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	base, err := recordPayload(txn)
	if err != nil {
		return nil, err
	}

	merged := DeepMerge(base, patch)
	merged["id"] = txn.ID
	if s, ok := merged["clientId"].(string); !ok || s == "" {
		merged["clientId"] = uuid.NewString()
	}

	if err := validateForWrite(merged); err != nil {
		return nil, err
	}

	// The write submit is the one network call worth retrying: the merged
	// record is already validated and the operation is idempotent upstream.
	err = common.WithRetry(ctx, func() error {
		return e.client.UpdateTransaction(ctx, id, merged)
	}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 250 * time.Millisecond})
	if err != nil {
		return nil, err
	}

	if err := e.orchestrator.SyncIncremental(ctx); err != nil {
		return nil, fmt.Errorf("update submitted but resync failed: %w", err)
	}

	return e.store.GetTransactionByID(ctx, id)
}

// recordPayload returns the verbatim upstream record as a mutable map,
// falling back to the normalized columns for records cached before payloads
// were retained.
func recordPayload(txn *model.Transaction) (map[string]any, error) {
	if len(txn.Payload) > 0 {
		var base map[string]any
		if err := json.Unmarshal(txn.Payload, &base); err != nil {
			return nil, fmt.Errorf("failed to decode cached payload for %s: %w", txn.ID, err)
		}
		return base, nil
	}

	base := map[string]any{
		"id":        txn.ID,
		"accountId": txn.AccountID,
		"payee":     txn.Payee,
		"notes":     txn.Notes,
		"amount":    txn.Amount,
		"state":     txn.State,
	}
	if !txn.PostedOn.IsZero() {
		base["postedOn"] = txn.PostedOn.Format(time.DateOnly)
	}
	if txn.Coa != nil {
		base["coa"] = map[string]any{"type": txn.Coa.Type, "id": txn.Coa.ID}
	}
	return base, nil
}

// validateForWrite checks that the merged record still carries every field
// the upstream write requires.
func validateForWrite(record map[string]any) error {
	for _, field := range requiredWriteFields {
		if !fieldPresent(record[field]) {
			return common.NewValidationError(field, "required for upstream write")
		}
	}

	coa, ok := record["coa"].(map[string]any)
	if !ok {
		return common.NewValidationError("coa", "classification object is required")
	}
	if !fieldPresent(coa["type"]) {
		return common.NewValidationError("coa.type", "required for upstream write")
	}
	if !fieldPresent(coa["id"]) {
		return common.NewValidationError("coa.id", "required for upstream write")
	}

	return nil
}

// fieldPresent reports whether a merged value counts as populated. Explicit
// nulls and empty strings do not.
func fieldPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	default:
		return true
	}
}
