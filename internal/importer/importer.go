// Package importer implements batch reconciliation of external expense
// rows into the store. Rows are validated and committed one at a time
// with row-level fault isolation: a malformed row becomes a report
// entry, never an aborted batch.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mkropat/spendwell/internal/common"
	"github.com/mkropat/spendwell/internal/model"
	"github.com/mkropat/spendwell/internal/service"
)

// Row-level failure kinds. Each rejected row's error wraps exactly one
// of these.
var (
	ErrMalformedDate    = errors.New("malformed date")
	ErrMalformedAmount  = errors.New("malformed amount")
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrDuplicateExpense = errors.New("duplicate expense")
)

// ErrMissingHeader indicates the CSV header row is absent or does not
// declare the expected columns.
var ErrMissingHeader = errors.New("missing or invalid CSV header")

// expectedHeader is the fixed column order for import files. The header
// row is required and matched case-insensitively.
var expectedHeader = []string{"date", "amount", "category", "description"}

// Row is one candidate expense prior to validation.
type Row struct {
	Date        string
	Amount      string
	Category    string
	Description string
	Line        int // 1-based line in the source file
}

// Failure records a rejected row: where it was, what it contained, and
// why it was turned away.
type Failure struct {
	Err  error
	Raw  string
	Line int
}

// Result summarizes one import batch.
type Result struct {
	Failures          []Failure
	CreatedCategories []string
	Imported          int
	Rejected          int
}

// Options control reconciliation policy.
type Options struct {
	// OnRow is called after each row is processed; used by the CLI for
	// progress reporting.
	OnRow func()
	// SkipDuplicates rejects rows whose (date, amount, category,
	// description) already exist, in the store or earlier in the batch.
	SkipDuplicates bool
	// NoCreate disables category auto-provisioning; rows naming an
	// unknown category are rejected instead.
	NoCreate bool
	// DryRun validates and reports without writing anything.
	DryRun bool
}

// Importer reconciles candidate rows against the persistent store. The
// store handle is an explicit dependency; the importer holds no global
// state.
type Importer struct {
	store service.Storage
	opts  Options
}

// New creates an Importer over the given store.
func New(store service.Storage, opts Options) *Importer {
	return &Importer{store: store, opts: opts}
}

// ImportCSV reads a CSV file with header "date,amount,category,description"
// and imports its rows. Row-level problems become Result.Failures;
// storage failures abort the batch and are returned as an error.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // field-count problems are handled per row
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrMissingHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHeader, err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	result := &Result{}
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Quoting errors and the like reject the row, not the batch.
			result.reject(Failure{
				Line: line,
				Raw:  "",
				Err:  fmt.Errorf("%w: %v", ErrMalformedRow, readErr),
			})
			i.rowDone()
			continue
		}

		row, rowErr := recordToRow(record, line)
		if rowErr != nil {
			result.reject(Failure{Line: line, Raw: strings.Join(record, ","), Err: rowErr})
			i.rowDone()
			continue
		}

		if err := i.importRow(ctx, row, seen, result); err != nil {
			return nil, err
		}
		i.rowDone()
	}

	slog.Info("import complete",
		"imported", result.Imported,
		"rejected", result.Rejected,
		"new_categories", len(result.CreatedCategories),
		"dry_run", i.opts.DryRun)

	return result, nil
}

// Import reconciles pre-parsed rows, e.g. from an OFX statement. The
// same per-row isolation and atomicity rules apply.
func (i *Importer) Import(ctx context.Context, rows []Row) (*Result, error) {
	result := &Result{}
	seen := make(map[string]bool)

	for _, row := range rows {
		if err := i.importRow(ctx, row, seen, result); err != nil {
			return nil, err
		}
		i.rowDone()
	}

	return result, nil
}

// importRow validates one row and, when valid, persists it inside its
// own transaction so category creation and the expense insert commit or
// roll back together. Validation failures land in result; only storage
// failures return an error.
func (i *Importer) importRow(ctx context.Context, row Row, seen map[string]bool, result *Result) error {
	raw := row.raw()

	date, err := model.ParseDate(row.Date)
	if err != nil {
		result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: %v", ErrMalformedDate, err)})
		return nil
	}

	amount, err := model.ParseAmount(row.Amount)
	if err != nil {
		result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: %v", ErrMalformedAmount, err)})
		return nil
	}

	category := strings.TrimSpace(row.Category)
	if category == "" {
		result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: empty category name", ErrUnknownCategory)})
		return nil
	}

	description := strings.TrimSpace(row.Description)
	hash := model.ComputeHash(date, amount, category, description)

	if i.opts.SkipDuplicates {
		if seen[hash] {
			result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: duplicated within batch", ErrDuplicateExpense)})
			return nil
		}
		exists, err := i.store.ExpenseExistsByHash(ctx, hash)
		if err != nil {
			return fmt.Errorf("duplicate check failed: %w", err)
		}
		if exists {
			result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: already stored", ErrDuplicateExpense)})
			return nil
		}
	}

	if i.opts.DryRun {
		if i.opts.NoCreate {
			if _, err := i.store.GetCategoryByName(ctx, category); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: %q", ErrUnknownCategory, category)})
					return nil
				}
				return fmt.Errorf("category lookup failed: %w", err)
			}
		}
		seen[hash] = true
		result.Imported++
		return nil
	}

	tx, err := i.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cat, err := tx.GetCategoryByName(ctx, category)
	switch {
	case err == nil:
		// existing category
	case errors.Is(err, common.ErrNotFound):
		if i.opts.NoCreate {
			result.reject(Failure{Line: row.Line, Raw: raw, Err: fmt.Errorf("%w: %q", ErrUnknownCategory, category)})
			return nil
		}
		cat, err = tx.CreateCategory(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to create category %q: %w", category, err)
		}
		result.CreatedCategories = append(result.CreatedCategories, category)
		slog.Info("auto-created category during import", "name", category, "line", row.Line)
	default:
		return fmt.Errorf("category lookup failed: %w", err)
	}

	expense := &model.Expense{
		Date:        date,
		Amount:      amount,
		CategoryID:  cat.ID,
		Description: description,
		Hash:        hash,
	}
	if err := tx.CreateExpense(ctx, expense); err != nil {
		return fmt.Errorf("failed to insert expense from line %d: %w", row.Line, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit row from line %d: %w", row.Line, err)
	}
	committed = true

	seen[hash] = true
	result.Imported++
	return nil
}

func (i *Importer) rowDone() {
	if i.opts.OnRow != nil {
		i.opts.OnRow()
	}
}

func (r *Result) reject(f Failure) {
	r.Rejected++
	r.Failures = append(r.Failures, f)
}

func (r Row) raw() string {
	return strings.Join([]string{r.Date, r.Amount, r.Category, r.Description}, ",")
}

func recordToRow(record []string, line int) (Row, error) {
	if len(record) != len(expectedHeader) {
		return Row{}, fmt.Errorf("%w: expected %d columns, got %d",
			ErrMalformedRow, len(expectedHeader), len(record))
	}
	return Row{
		Date:        record[0],
		Amount:      record[1],
		Category:    record[2],
		Description: record[3],
		Line:        line,
	}, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("%w: want %q", ErrMissingHeader, strings.Join(expectedHeader, ","))
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), expectedHeader[i]) {
			return fmt.Errorf("%w: column %d is %q, want %q",
				ErrMissingHeader, i+1, strings.TrimSpace(col), expectedHeader[i])
		}
	}
	return nil
}
