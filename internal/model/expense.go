package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the only accepted date layout, both in CSV files and on
// the command line.
const DateFormat = "2006-01-02"

// ErrInvalidAmount indicates an amount that could not be parsed or that
// failed validation.
var ErrInvalidAmount = errors.New("invalid amount")

// Expense represents a single recorded transaction.
type Expense struct {
	Date         time.Time
	CreatedAt    time.Time
	Description  string
	CategoryName string // populated on reads via join; not stored
	Hash         string
	Amount       decimal.Decimal
	ID           int64
	CategoryID   int64
}

// ParseDate parses a calendar date in DateFormat.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be %s: %w", DateFormat, err)
	}
	return d, nil
}

// ParseAmount parses a plain decimal amount such as "12.34" or "-7.00".
// Currency symbols and thousands separators are not accepted. Zero is
// rejected: a zero-value expense is always a data error. Negative
// amounts are allowed and represent refunds.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount cannot be zero", ErrInvalidAmount)
	}
	return d, nil
}

// ComputeHash returns a stable hash over the fields that identify a
// duplicate row: date, amount, category name and description. Used by
// the importer's duplicate detection.
func ComputeHash(date time.Time, amount decimal.Decimal, categoryName, description string) string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		date.Format(DateFormat),
		amount.String(),
		categoryName,
		description)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}
