// Package testutil provides test helpers for packages that need a real
// database.
package testutil

import (
	"context"
	"testing"

	"github.com/mkropat/spendwell/internal/model"
	"github.com/mkropat/spendwell/internal/service"
	"github.com/mkropat/spendwell/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store seeded with the
// given category names. Cleanup is registered automatically.
func SetupTestDB(t *testing.T, categories ...string) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, name := range categories {
		if _, err := store.CreateCategory(ctx, name); err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// MustCreateExpense inserts an expense or fails the test.
func MustCreateExpense(t *testing.T, store service.Storage, expense *model.Expense) *model.Expense {
	t.Helper()

	if err := store.CreateExpense(context.Background(), expense); err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}
	return expense
}
