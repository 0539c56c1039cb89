package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkropat/spendwell/internal/common"
	"github.com/mkropat/spendwell/internal/model"
	"github.com/mkropat/spendwell/internal/service"
)

// CreateExpense inserts a new expense and assigns its id. The referenced
// category must already exist; the foreign key rejects dangling
// references.
func (s *SQLiteStorage) CreateExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return createExpense(ctx, s.db, expense)
}

// GetExpenseByID returns a single expense with its category name
// resolved, or common.ErrNotFound.
func (s *SQLiteStorage) GetExpenseByID(ctx context.Context, id int64) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getExpenseByID(ctx, s.db, id)
}

// ListExpenses returns expenses matching the filter, newest first.
func (s *SQLiteStorage) ListExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listExpenses(ctx, s.db, filter)
}

// UpdateExpense applies a partial update to an expense by id.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, id int64, update service.ExpenseUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return updateExpense(ctx, s.db, id, update)
}

// DeleteExpense removes an expense by id.
func (s *SQLiteStorage) DeleteExpense(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteExpense(ctx, s.db, id)
}

// CountExpensesByCategory returns how many expenses reference a category.
func (s *SQLiteStorage) CountExpensesByCategory(ctx context.Context, categoryID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return countExpensesByCategory(ctx, s.db, categoryID)
}

// ExpenseExistsByHash reports whether an expense with the given import
// hash is already stored.
func (s *SQLiteStorage) ExpenseExistsByHash(ctx context.Context, hash string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return false, err
	}
	return expenseExistsByHash(ctx, s.db, hash)
}

// CategoryTotals aggregates expense counts and amounts per category over
// an optional date range.
func (s *SQLiteStorage) CategoryTotals(ctx context.Context, start, end *time.Time) ([]service.CategoryTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return categoryTotals(ctx, s.db, start, end)
}

func createExpense(ctx context.Context, q dbtx, expense *model.Expense) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}

	var hash any
	if expense.Hash != "" {
		hash = expense.Hash
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO expenses (date, amount, description, category_id, import_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		expense.Date.Format(model.DateFormat),
		expense.Amount.String(),
		expense.Description,
		expense.CategoryID,
		hash,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get expense ID: %w", err)
	}
	expense.ID = id

	return nil
}

func getExpenseByID(ctx context.Context, q dbtx, id int64) (*model.Expense, error) {
	query := `
		SELECT e.id, e.date, e.amount, e.description, e.category_id, c.name,
			COALESCE(e.import_hash, ''), e.created_at
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.id = ?`

	exp, err := scanExpense(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query expense: %w", err)
	}

	return exp, nil
}

func listExpenses(ctx context.Context, q dbtx, filter service.ExpenseFilter) ([]model.Expense, error) {
	query := `
		SELECT e.id, e.date, e.amount, e.description, e.category_id, c.name,
			COALESCE(e.import_hash, ''), e.created_at
		FROM expenses e
		JOIN categories c ON e.category_id = c.id`

	var conditions []string
	var args []any

	if filter.Start != nil {
		conditions = append(conditions, "e.date >= ?")
		args = append(args, filter.Start.Format(model.DateFormat))
	}
	if filter.End != nil {
		conditions = append(conditions, "e.date <= ?")
		args = append(args, filter.End.Format(model.DateFormat))
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, "e.category_id = ?")
		args = append(args, *filter.CategoryID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Newest first
	query += " ORDER BY e.date DESC, e.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []model.Expense
	for rows.Next() {
		exp, scanErr := scanExpense(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", scanErr)
		}
		expenses = append(expenses, *exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

func updateExpense(ctx context.Context, q dbtx, id int64, update service.ExpenseUpdate) error {
	if update.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", ErrNilParameter)
	}

	var sets []string
	var args []any

	if update.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, update.Date.Format(model.DateFormat))
	}
	if update.Amount != nil {
		if update.Amount.IsZero() {
			return fmt.Errorf("%w: zero amount", ErrInvalidExpense)
		}
		sets = append(sets, "amount = ?")
		args = append(args, update.Amount.String())
	}
	if update.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *update.CategoryID)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = ?", strings.Join(sets, ", "))

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %d: %w", id, common.ErrNotFound)
	}

	return nil
}

func deleteExpense(ctx context.Context, q dbtx, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %d: %w", id, common.ErrNotFound)
	}

	return nil
}

func countExpensesByCategory(ctx context.Context, q dbtx, categoryID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

func expenseExistsByHash(ctx context.Context, q dbtx, hash string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM expenses WHERE import_hash = ? LIMIT 1`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query expense hash: %w", err)
	}
	return true, nil
}

// Amounts are stored as decimal strings, so aggregation happens here
// rather than in SQL.
func categoryTotals(ctx context.Context, q dbtx, start, end *time.Time) ([]service.CategoryTotal, error) {
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidDateRange,
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}

	query := `
		SELECT c.name, e.amount
		FROM expenses e
		JOIN categories c ON e.category_id = c.id`

	var conditions []string
	var args []any
	if start != nil {
		conditions = append(conditions, "e.date >= ?")
		args = append(args, start.Format(model.DateFormat))
	}
	if end != nil {
		conditions = append(conditions, "e.date <= ?")
		args = append(args, end.Format(model.DateFormat))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.name"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []service.CategoryTotal
	for rows.Next() {
		var name, rawAmount string
		if err := rows.Scan(&name, &rawAmount); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}

		amount, err := scanAmount(rawAmount)
		if err != nil {
			return nil, err
		}

		if n := len(totals); n > 0 && totals[n-1].Category == name {
			totals[n-1].Total = totals[n-1].Total.Add(amount)
			totals[n-1].Count++
			continue
		}
		totals = append(totals, service.CategoryTotal{
			Category: name,
			Total:    amount,
			Count:    1,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	return totals, nil
}

// scanner abstracts sql.Row and sql.Rows for scanExpense.
type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*model.Expense, error) {
	var exp model.Expense
	var rawDate, rawAmount string

	if err := row.Scan(&exp.ID, &rawDate, &rawAmount, &exp.Description,
		&exp.CategoryID, &exp.CategoryName, &exp.Hash, &exp.CreatedAt); err != nil {
		return nil, err
	}

	date, err := time.Parse(model.DateFormat, rawDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt date %q in database: %w", rawDate, err)
	}
	exp.Date = date

	amount, err := scanAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	exp.Amount = amount

	return &exp, nil
}
