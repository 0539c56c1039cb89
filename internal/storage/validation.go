// Package storage provides the data persistence layer for spendwell.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mkropat/spendwell/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidExpense   = errors.New("invalid expense")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateExpense validates an expense before it is written. Amount
// rules (finite, non-zero) are enforced at parse time; here we guard
// the structural invariants.
func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if expense.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	if expense.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidExpense)
	}
	if expense.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category reference", ErrInvalidExpense)
	}
	return nil
}
