// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkropat/spendwell/internal/model"
)

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	Start      *time.Time
	End        *time.Time
	CategoryID *int64
	Limit      int
}

// ExpenseUpdate describes a partial update to an expense. Nil fields are
// left unchanged.
type ExpenseUpdate struct {
	Date        *time.Time
	Amount      *decimal.Decimal
	CategoryID  *int64
	Description *string
}

// IsEmpty reports whether the update would change nothing.
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Date == nil && u.Amount == nil && u.CategoryID == nil && u.Description == nil
}

// CategoryTotal is one row of the per-category spending report.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, id int64, name string) error
	DeleteCategory(ctx context.Context, id int64) error

	// Expense operations
	CreateExpense(ctx context.Context, expense *model.Expense) error
	GetExpenseByID(ctx context.Context, id int64) (*model.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, id int64, update ExpenseUpdate) error
	DeleteExpense(ctx context.Context, id int64) error
	CountExpensesByCategory(ctx context.Context, categoryID int64) (int, error)
	ExpenseExistsByHash(ctx context.Context, hash string) (bool, error)
	CategoryTotals(ctx context.Context, start, end *time.Time) ([]CategoryTotal, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. It exposes the full
// Storage contract so callers can run the same operations atomically.
type Transaction interface {
	Commit() error
	Rollback() error
	Storage
}
