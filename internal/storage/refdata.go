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

// UpsertCategories inserts or replaces categories keyed by id in a single
// database transaction.
func (s *SQLiteStorage) UpsertCategories(ctx context.Context, categories []model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategories(categories); err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categories (
			id, parent_id, name, type, can_edit, can_delete, is_deleted,
			payload, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			type = excluded.type,
			can_edit = excluded.can_edit,
			can_delete = excluded.can_delete,
			is_deleted = excluded.is_deleted,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, cat := range categories {
		var payload any
		if len(cat.Payload) > 0 {
			payload = string(cat.Payload)
		}

		_, err = stmt.ExecContext(ctx,
			cat.ID,
			cat.ParentID,
			cat.Name,
			cat.Type,
			cat.CanEdit,
			cat.CanDelete,
			cat.Deleted,
			payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", cat.ID, err)
		}
	}

	return tx.Commit()
}

// ListCategories returns categories, optionally filtered by a
// case-insensitive substring match on the name. The collection is small, so
// there is no cursor; limit is clamped instead.
func (s *SQLiteStorage) ListCategories(ctx context.Context, query string, limit int) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, service.DefaultRefLimit, service.MaxRefDataLimit)

	where := "WHERE is_deleted = 0"
	args := []any{}
	if term := strings.TrimSpace(query); term != "" {
		where += " AND instr(lower(name), lower(?)) > 0"
		args = append(args, term)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, parent_id, name, type, can_edit, can_delete, is_deleted, payload
		FROM categories
		%s
		ORDER BY name ASC
		LIMIT ?
	`, where), append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan category: %w", scanErr)
		}
		categories = append(categories, *cat)
	}

	return categories, rows.Err()
}

// GetCategoryByID retrieves a single category by ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, name, type, can_edit, can_delete, is_deleted, payload
		FROM categories
		WHERE id = ?
	`, id)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return cat, nil
}

// UpsertTags inserts or replaces tags keyed by id in a single database
// transaction.
func (s *SQLiteStorage) UpsertTags(ctx context.Context, tags []model.Tag) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTags(tags); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tags (
			id, name, type, use_count, is_deleted, payload, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			use_count = excluded.use_count,
			is_deleted = excluded.is_deleted,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, tag := range tags {
		var payload any
		if len(tag.Payload) > 0 {
			payload = string(tag.Payload)
		}

		_, err = stmt.ExecContext(ctx,
			tag.ID,
			tag.Name,
			tag.Type,
			tag.UseCount,
			tag.Deleted,
			payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %s: %w", tag.ID, err)
		}
	}

	return tx.Commit()
}

// ListTags returns tags, optionally filtered by a case-insensitive substring
// match on the name.
func (s *SQLiteStorage) ListTags(ctx context.Context, query string, limit int) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, service.DefaultRefLimit, service.MaxRefDataLimit)

	where := "WHERE is_deleted = 0"
	args := []any{}
	if term := strings.TrimSpace(query); term != "" {
		where += " AND instr(lower(name), lower(?)) > 0"
		args = append(args, term)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, type, use_count, is_deleted, payload
		FROM tags
		%s
		ORDER BY name ASC
		LIMIT ?
	`, where), append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		var name, tagType, payload sql.NullString
		if err := rows.Scan(&tag.ID, &name, &tagType, &tag.UseCount, &tag.Deleted, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tag.Name = name.String
		tag.Type = tagType.String
		if payload.Valid && payload.String != "" {
			tag.Payload = []byte(payload.String)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// scanCategory reads one category row.
func scanCategory(row rowScanner) (*model.Category, error) {
	var cat model.Category
	var parentID, name, catType, payload sql.NullString

	err := row.Scan(
		&cat.ID,
		&parentID,
		&name,
		&catType,
		&cat.CanEdit,
		&cat.CanDelete,
		&cat.Deleted,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	cat.ParentID = parentID.String
	cat.Name = name.String
	cat.Type = catType.String
	if payload.Valid && payload.String != "" {
		cat.Payload = []byte(payload.String)
	}

	return &cat, nil
}
