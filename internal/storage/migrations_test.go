package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkropat/spendwell/internal/model"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	var version int
	err = store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()

	// Seed data, then run migrations again: no duplicate tables, no
	// data loss.
	cat, err := store.CreateCategory(ctx, "Food")
	require.NoError(t, err)
	require.NoError(t, store.CreateExpense(ctx, &model.Expense{
		Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("25.50"),
		CategoryID: cat.ID,
	}))

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	count, err := store.CountExpensesByCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrate_TablesExist(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	for _, table := range []string{"categories", "expenses"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}
