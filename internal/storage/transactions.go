package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"
)

const transactionColumns = `id, posted_on, modified_at, account_id, payee,
	renamed_payee, inferred_payee, notes, coa_type, coa_id, amount, state,
	is_deleted, payload`

// UpsertTransactions inserts or replaces transactions keyed by id in a
// single database transaction, so a failed batch leaves no partial page
// behind. Normalized filter columns (classification, merchant) are
// recomputed from the record on every upsert.
func (s *SQLiteStorage) UpsertTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, posted_on, modified_at, account_id, payee, renamed_payee,
			inferred_payee, notes, coa_type, coa_id, merchant, amount, state,
			is_deleted, payload, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			posted_on = excluded.posted_on,
			modified_at = excluded.modified_at,
			account_id = excluded.account_id,
			payee = excluded.payee,
			renamed_payee = excluded.renamed_payee,
			inferred_payee = excluded.inferred_payee,
			notes = excluded.notes,
			coa_type = excluded.coa_type,
			coa_id = excluded.coa_id,
			merchant = excluded.merchant,
			amount = excluded.amount,
			state = excluded.state,
			is_deleted = excluded.is_deleted,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, txn := range transactions {
		var coaType, coaID any
		if txn.Coa != nil {
			coaType = txn.Coa.Type
			coaID = txn.Coa.ID
		}

		var payload any
		if len(txn.Payload) > 0 {
			payload = string(txn.Payload)
		}

		_, err = stmt.ExecContext(ctx,
			txn.ID,
			nullTime(txn.PostedOn),
			nullTime(txn.ModifiedAt),
			txn.AccountID,
			txn.Payee,
			txn.RenamedPayee,
			txn.InferredPayee,
			txn.Notes,
			coaType,
			coaID,
			txn.Merchant(),
			txn.Amount,
			txn.State,
			txn.Deleted,
			payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a single transaction by ID. It never falls
// back to the network; a miss returns common.ErrNotFound and the caller
// decides whether to sync.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM transactions WHERE id = ?
	`, transactionColumns), id)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// ListTransactions returns one page of transactions matching the filter,
// ordered by posting date descending with id descending as tie-break.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter, cursor string, limit int) (*service.TransactionPage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := buildTransactionWhere(filter)
	return s.listPage(ctx, where, args, cursor, limit)
}

// SearchTransactions returns one page of transactions matching the filter
// and a case-insensitive substring match across payee, renamed payee, memo
// and inferred payee.
func (s *SQLiteStorage) SearchTransactions(ctx context.Context, filter service.TransactionFilter, searchTerm, cursor string, limit int) (*service.TransactionPage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := buildTransactionWhere(filter)
	if term := strings.TrimSpace(searchTerm); term != "" {
		where = append(where, `(instr(lower(payee), lower(?)) > 0
			OR instr(lower(renamed_payee), lower(?)) > 0
			OR instr(lower(notes), lower(?)) > 0
			OR instr(lower(inferred_payee), lower(?)) > 0)`)
		args = append(args, term, term, term, term)
	}

	return s.listPage(ctx, where, args, cursor, limit)
}

// ListUncategorizedTransactions returns one page of transactions whose
// classification is absent, explicitly uncategorized, or the upstream "0"
// pseudo-category.
func (s *SQLiteStorage) ListUncategorizedTransactions(ctx context.Context, filter service.TransactionFilter, cursor string, limit int) (*service.TransactionPage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := buildTransactionWhere(filter)
	where = append(where, `(coa_type IS NULL OR coa_type = '' OR coa_type = ? OR coa_id = '0')`)
	args = append(args, model.CoaTypeUncategorized)

	return s.listPage(ctx, where, args, cursor, limit)
}

// listPage runs the shared count-then-page query for the transaction list
// endpoints.
func (s *SQLiteStorage) listPage(ctx context.Context, where []string, args []any, cursor string, limit int) (*service.TransactionPage, error) {
	limit = clampLimit(limit, service.DefaultPageLimit, service.MaxPageLimit)
	offset := decodeCursor(cursor)

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM transactions%s
		ORDER BY posted_on DESC, id DESC
		LIMIT ? OFFSET ?
	`, transactionColumns, whereClause)

	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		items = append(items, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	page := &service.TransactionPage{Items: items, Total: total}
	if offset+len(items) < total {
		page.NextCursor = encodeCursor(offset + len(items))
	}

	return page, nil
}

// SearchMerchants aggregates transactions by best-available merchant name,
// filtered by a case-insensitive substring match, ordered by frequency
// descending then name ascending.
func (s *SQLiteStorage) SearchMerchants(ctx context.Context, query string, limit int, includeDeleted bool) ([]model.MerchantCount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, service.DefaultPageLimit, service.MaxMerchantLimit)

	where := []string{"merchant IS NOT NULL", "merchant != ''"}
	args := []any{}
	if !includeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if term := strings.TrimSpace(query); term != "" {
		where = append(where, "instr(lower(merchant), lower(?)) > 0")
		args = append(args, term)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT merchant, COUNT(*) AS cnt
		FROM transactions
		WHERE %s
		GROUP BY merchant
		ORDER BY cnt DESC, merchant ASC
		LIMIT ?
	`, strings.Join(where, " AND ")), append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.MerchantCount
	for rows.Next() {
		var mc model.MerchantCount
		if err := rows.Scan(&mc.Merchant, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan merchant count: %w", err)
		}
		results = append(results, mc)
	}

	return results, rows.Err()
}

// SuggestCategoriesForMerchant aggregates the historical classification
// pairs used for a merchant, resolving names against the cached categories
// where possible.
func (s *SQLiteStorage) SuggestCategoriesForMerchant(ctx context.Context, merchant string, mode service.MerchantMatchMode, limit int, includeDeleted bool) ([]model.CategorySuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}
	if err := validateMatchMode(mode); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, service.DefaultSuggestCap, service.MaxSuggestLimit)

	match := "lower(t.merchant) = lower(?)"
	if mode == service.MatchContains {
		match = "instr(lower(t.merchant), lower(?)) > 0"
	}

	where := []string{match, "t.coa_type IS NOT NULL", "t.coa_type != ''"}
	if !includeDeleted {
		where = append(where, "t.is_deleted = 0")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT t.coa_type, t.coa_id, COALESCE(c.name, ''), COUNT(*) AS cnt
		FROM transactions t
		LEFT JOIN categories c ON t.coa_id = c.id
		WHERE %s
		GROUP BY t.coa_type, t.coa_id
		ORDER BY cnt DESC
		LIMIT ?
	`, strings.Join(where, " AND ")), merchant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query category suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.CategorySuggestion
	for rows.Next() {
		var cs model.CategorySuggestion
		var coaID sql.NullString
		if err := rows.Scan(&cs.CoaType, &coaID, &cs.Name, &cs.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category suggestion: %w", err)
		}
		cs.CoaID = coaID.String
		results = append(results, cs)
	}

	return results, rows.Err()
}

// buildTransactionWhere converts a filter into AND-combined SQL predicates.
func buildTransactionWhere(filter service.TransactionFilter) ([]string, []any) {
	var where []string
	var args []any

	if !filter.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		where = append(where, "posted_on >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, "posted_on <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, filter.State)
	}
	if filter.CoaType != "" {
		where = append(where, "coa_type = ?")
		args = append(args, filter.CoaType)
	}
	if filter.CoaID != "" {
		where = append(where, "coa_id = ?")
		args = append(args, filter.CoaID)
	}

	return where, args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads one transaction row, mapping NULL columns back to
// absent fields.
func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var postedOn, modifiedAt sql.NullTime
	var accountID, payee, renamedPayee, inferredPayee sql.NullString
	var notes, coaType, coaID, state, payload sql.NullString
	var amount sql.NullFloat64

	err := row.Scan(
		&txn.ID,
		&postedOn,
		&modifiedAt,
		&accountID,
		&payee,
		&renamedPayee,
		&inferredPayee,
		&notes,
		&coaType,
		&coaID,
		&amount,
		&state,
		&txn.Deleted,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	if postedOn.Valid {
		txn.PostedOn = postedOn.Time
	}
	if modifiedAt.Valid {
		txn.ModifiedAt = modifiedAt.Time
	}
	txn.AccountID = accountID.String
	txn.Payee = payee.String
	txn.RenamedPayee = renamedPayee.String
	txn.InferredPayee = inferredPayee.String
	txn.Notes = notes.String
	txn.State = state.String
	txn.Amount = amount.Float64
	if coaType.Valid && coaType.String != "" {
		txn.Coa = &model.Classification{Type: coaType.String, ID: coaID.String}
	}
	if payload.Valid && payload.String != "" {
		txn.Payload = []byte(payload.String)
	}

	return &txn, nil
}

// nullTime maps the zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
