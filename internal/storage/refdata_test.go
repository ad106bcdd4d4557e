package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"
)

func TestUpsertCategories_RoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	categories := []model.Category{
		{ID: "7", Name: "Coffee Shops", Type: "EXPENSE", CanEdit: true, CanDelete: true},
		{ID: "9", Name: "Restaurants", Type: "EXPENSE"},
		{ID: "3", ParentID: "9", Name: "Fast Food", Type: "EXPENSE"},
	}
	if err := store.UpsertCategories(ctx, categories); err != nil {
		t.Fatalf("upsert categories failed: %v", err)
	}

	// Re-upserting the same set does not duplicate.
	if err := store.UpsertCategories(ctx, categories); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := store.ListCategories(ctx, "", 0)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d categories, want 3", len(got))
	}
	// Name ordering.
	if got[0].Name != "Coffee Shops" || got[1].Name != "Fast Food" || got[2].Name != "Restaurants" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
	if got[1].ParentID != "9" {
		t.Errorf("parent id = %q, want 9", got[1].ParentID)
	}
}

func TestListCategories_SearchAndDeleted(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	categories := []model.Category{
		{ID: "1", Name: "Coffee Shops", Type: "EXPENSE"},
		{ID: "2", Name: "Groceries", Type: "EXPENSE"},
		{ID: "3", Name: "Coffee Equipment", Type: "EXPENSE", Deleted: true},
	}
	if err := store.UpsertCategories(ctx, categories); err != nil {
		t.Fatalf("upsert categories failed: %v", err)
	}

	got, err := store.ListCategories(ctx, "COFFEE", 0)
	if err != nil {
		t.Fatalf("search categories failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("search returned %+v, want only the live Coffee Shops row", got)
	}
}

func TestGetCategoryByID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if err := store.UpsertCategories(ctx, []model.Category{{ID: "7", Name: "Coffee Shops"}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	cat, err := store.GetCategoryByID(ctx, "7")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cat.Name != "Coffee Shops" {
		t.Errorf("name = %q, want Coffee Shops", cat.Name)
	}

	_, err = store.GetCategoryByID(ctx, "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertTags_RoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tags := []model.Tag{
		{ID: "t1", Name: "vacation", Type: "USER", UseCount: 4},
		{ID: "t2", Name: "reimbursable", Type: "USER", UseCount: 12},
		{ID: "t3", Name: "old", Type: "USER", Deleted: true},
	}
	if err := store.UpsertTags(ctx, tags); err != nil {
		t.Fatalf("upsert tags failed: %v", err)
	}

	got, err := store.ListTags(ctx, "", 0)
	if err != nil {
		t.Fatalf("list tags failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d live tags, want 2", len(got))
	}
	if got[0].Name != "reimbursable" || got[0].UseCount != 12 {
		t.Errorf("first tag = %+v, want reimbursable x12", got[0])
	}

	got, err = store.ListTags(ctx, "VACA", 0)
	if err != nil {
		t.Fatalf("search tags failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "vacation" {
		t.Errorf("search returned %+v, want vacation", got)
	}
}

func TestUpsertRefData_RequiresID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if err := store.UpsertCategories(ctx, []model.Category{{Name: "no id"}}); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
	if err := store.UpsertTags(ctx, []model.Tag{{Name: "no id"}}); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}
