package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkropat/spendwell/internal/common"
	"github.com/mkropat/spendwell/internal/model"
)

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("create and fetch by name", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		cat, err := store.CreateCategory(ctx, "Food")
		require.NoError(t, err)
		assert.Equal(t, "Food", cat.Name)
		assert.NotZero(t, cat.ID)

		retrieved, err := store.GetCategoryByName(ctx, "Food")
		require.NoError(t, err)
		assert.Equal(t, cat.ID, retrieved.ID)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.CreateCategory(ctx, "Food")
		require.NoError(t, err)

		_, err = store.CreateCategory(ctx, "Food")
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.CreateCategory(ctx, "Food")
		require.NoError(t, err)

		lower, err := store.CreateCategory(ctx, "food")
		require.NoError(t, err, "differently-cased name is a distinct category")
		assert.Equal(t, "food", lower.Name)

		_, err = store.GetCategoryByName(ctx, "FOOD")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.CreateCategory(ctx, "  ")
		assert.Error(t, err)
	})
}

func TestGetCategories_OrderedByName(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, name := range []string{"Transport", "Food", "Housing"} {
		_, err := store.CreateCategory(ctx, name)
		require.NoError(t, err)
	}

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Food", cats[0].Name)
	assert.Equal(t, "Housing", cats[1].Name)
	assert.Equal(t, "Transport", cats[2].Name)
}

func TestRenameCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("rename keeps id stable", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		cat, err := store.CreateCategory(ctx, "Leisure")
		require.NoError(t, err)

		require.NoError(t, store.RenameCategory(ctx, cat.ID, "Entertainment"))

		renamed, err := store.GetCategoryByID(ctx, cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "Entertainment", renamed.Name)

		_, err = store.GetCategoryByName(ctx, "Leisure")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		err := store.RenameCategory(ctx, 999, "Anything")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("rename onto existing name rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.CreateCategory(ctx, "Food")
		require.NoError(t, err)
		cat, err := store.CreateCategory(ctx, "Transport")
		require.NoError(t, err)

		err = store.RenameCategory(ctx, cat.ID, "Food")
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})
}

func TestDeleteCategory_ReferentialIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("unreferenced category deletes", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		cat, err := store.CreateCategory(ctx, "Leisure")
		require.NoError(t, err)

		require.NoError(t, store.DeleteCategory(ctx, cat.ID))

		_, err = store.GetCategoryByID(ctx, cat.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("referenced category is protected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		cat, err := store.CreateCategory(ctx, "Food")
		require.NoError(t, err)

		expense := &model.Expense{
			Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.RequireFromString("25.50"),
			CategoryID: cat.ID,
		}
		require.NoError(t, store.CreateExpense(ctx, expense))

		err = store.DeleteCategory(ctx, cat.ID)
		assert.ErrorIs(t, err, common.ErrCategoryInUse)

		// Category must still exist
		_, err = store.GetCategoryByID(ctx, cat.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		err := store.DeleteCategory(ctx, 999)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestCategoryOperationsInsideTransaction(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.CreateCategory(ctx, "Pending")
	require.NoError(t, err)

	// Visible inside the transaction
	_, err = tx.GetCategoryByName(ctx, "Pending")
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())

	// Gone after rollback
	_, err = store.GetCategoryByName(ctx, "Pending")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
