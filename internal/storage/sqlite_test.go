package storage

import (
	"context"
	"testing"
)

// newTestStorage returns a migrated in-memory store.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStorage(t)

	// Running migrations again against a current schema is a no-op.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version failed: %v", err)
	}
	if version != 0 {
		t.Errorf("fresh database version = %d, want 0", version)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	version, err = store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version failed: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("migrated version = %d, want %d", version, ExpectedSchemaVersion)
	}
}
