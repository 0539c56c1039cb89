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
	"github.com/mkropat/spendwell/internal/service"
)

func seedCategory(t *testing.T, store *SQLiteStorage, name string) *model.Category {
	t.Helper()
	cat, err := store.CreateCategory(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to seed category %q: %v", name, err)
	}
	return cat
}

func TestCreateExpense_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	cat := seedCategory(t, store, "Food")

	expense := &model.Expense{
		Date:        time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("25.50"),
		CategoryID:  cat.ID,
		Description: "Big weekend food shop",
	}
	require.NoError(t, store.CreateExpense(ctx, expense))
	require.NotZero(t, expense.ID)

	got, err := store.GetExpenseByID(ctx, expense.ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(expense.Date))
	assert.True(t, got.Amount.Equal(expense.Amount))
	assert.Equal(t, cat.ID, got.CategoryID)
	assert.Equal(t, "Food", got.CategoryName)
	assert.Equal(t, "Big weekend food shop", got.Description)
}

func TestCreateExpense_Validation(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	cat := seedCategory(t, store, "Food")

	tests := []struct {
		expense *model.Expense
		name    string
	}{
		{name: "nil expense", expense: nil},
		{
			name: "zero date",
			expense: &model.Expense{
				Amount:     decimal.RequireFromString("5.00"),
				CategoryID: cat.ID,
			},
		},
		{
			name: "zero amount",
			expense: &model.Expense{
				Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
				CategoryID: cat.ID,
			},
		},
		{
			name: "missing category",
			expense: &model.Expense{
				Date:   time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
				Amount: decimal.RequireFromString("5.00"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.CreateExpense(ctx, tt.expense))
		})
	}
}

func TestCreateExpense_DanglingCategoryRejected(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	expense := &model.Expense{
		Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("5.00"),
		CategoryID: 42, // no such category
	}
	assert.Error(t, store.CreateExpense(ctx, expense),
		"foreign key should reject a dangling category reference")
}

func TestGetExpenseByID_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetExpenseByID(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	food := seedCategory(t, store, "Food")
	transport := seedCategory(t, store, "Transport")

	seed := []struct {
		date     string
		amount   string
		category int64
	}{
		{"2023-11-18", "89.99", food.ID},
		{"2023-11-20", "25.50", food.ID},
		{"2023-11-21", "5.20", transport.ID},
	}
	for _, s := range seed {
		date, err := model.ParseDate(s.date)
		require.NoError(t, err)
		require.NoError(t, store.CreateExpense(ctx, &model.Expense{
			Date:       date,
			Amount:     decimal.RequireFromString(s.amount),
			CategoryID: s.category,
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{})
		require.NoError(t, err)
		require.Len(t, expenses, 3)
		assert.Equal(t, "2023-11-21", expenses[0].Date.Format(model.DateFormat))
		assert.Equal(t, "2023-11-18", expenses[2].Date.Format(model.DateFormat))
	})

	t.Run("date range filter", func(t *testing.T) {
		start := time.Date(2023, 11, 19, 0, 0, 0, 0, time.UTC)
		end := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
		expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{Start: &start, End: &end})
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.Equal(t, "25.5", expenses[0].Amount.String())
	})

	t.Run("category filter", func(t *testing.T) {
		expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{CategoryID: &transport.ID})
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.Equal(t, "Transport", expenses[0].CategoryName)
	})

	t.Run("limit", func(t *testing.T) {
		expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, expenses, 2)
	})
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update changes only requested fields", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		cat := seedCategory(t, store, "Food")
		expense := &model.Expense{
			Date:        time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("25.50"),
			CategoryID:  cat.ID,
			Description: "Weekend shop",
		}
		require.NoError(t, store.CreateExpense(ctx, expense))

		newAmount := decimal.RequireFromString("30.75")
		err := store.UpdateExpense(ctx, expense.ID, service.ExpenseUpdate{Amount: &newAmount})
		require.NoError(t, err)

		got, err := store.GetExpenseByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "30.75", got.Amount.String())
		assert.Equal(t, "Weekend shop", got.Description, "description must be untouched")
		assert.True(t, got.Date.Equal(expense.Date), "date must be untouched")
	})

	t.Run("category change", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		food := seedCategory(t, store, "Food")
		transport := seedCategory(t, store, "Transport")
		expense := &model.Expense{
			Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.RequireFromString("5.20"),
			CategoryID: food.ID,
		}
		require.NoError(t, store.CreateExpense(ctx, expense))

		err := store.UpdateExpense(ctx, expense.ID, service.ExpenseUpdate{CategoryID: &transport.ID})
		require.NoError(t, err)

		got, err := store.GetExpenseByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "Transport", got.CategoryName)
	})

	t.Run("empty update rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		err := store.UpdateExpense(ctx, 1, service.ExpenseUpdate{})
		assert.Error(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		desc := "anything"
		err := store.UpdateExpense(ctx, 999, service.ExpenseUpdate{Description: &desc})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	cat := seedCategory(t, store, "Food")
	expense := &model.Expense{
		Date:       time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("5.00"),
		CategoryID: cat.ID,
	}
	require.NoError(t, store.CreateExpense(ctx, expense))

	require.NoError(t, store.DeleteExpense(ctx, expense.ID))

	_, err := store.GetExpenseByID(ctx, expense.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deleting again reports not found
	assert.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), common.ErrNotFound)
}

func TestExpenseExistsByHash(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	cat := seedCategory(t, store, "Food")
	date := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("5.00")
	hash := model.ComputeHash(date, amount, "Food", "lunch")

	exists, err := store.ExpenseExistsByHash(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateExpense(ctx, &model.Expense{
		Date:        date,
		Amount:      amount,
		CategoryID:  cat.ID,
		Description: "lunch",
		Hash:        hash,
	}))

	exists, err = store.ExpenseExistsByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCategoryTotals(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	food := seedCategory(t, store, "Food")
	transport := seedCategory(t, store, "Transport")

	seed := []struct {
		date     string
		amount   string
		category int64
	}{
		{"2023-11-18", "10.00", food.ID},
		{"2023-11-20", "15.50", food.ID},
		{"2023-11-20", "-2.50", food.ID}, // refund
		{"2023-11-21", "5.20", transport.ID},
	}
	for _, s := range seed {
		date, err := model.ParseDate(s.date)
		require.NoError(t, err)
		require.NoError(t, store.CreateExpense(ctx, &model.Expense{
			Date:       date,
			Amount:     decimal.RequireFromString(s.amount),
			CategoryID: s.category,
		}))
	}

	t.Run("all time", func(t *testing.T) {
		totals, err := store.CategoryTotals(ctx, nil, nil)
		require.NoError(t, err)
		require.Len(t, totals, 2)

		assert.Equal(t, "Food", totals[0].Category)
		assert.Equal(t, 3, totals[0].Count)
		assert.Equal(t, "23", totals[0].Total.String())

		assert.Equal(t, "Transport", totals[1].Category)
		assert.Equal(t, "5.2", totals[1].Total.String())
	})

	t.Run("date range", func(t *testing.T) {
		start := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
		totals, err := store.CategoryTotals(ctx, &start, nil)
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "13", totals[0].Total.String())
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		start := time.Date(2023, 11, 21, 0, 0, 0, 0, time.UTC)
		end := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
		_, err := store.CategoryTotals(ctx, &start, &end)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}
