package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mkropat/spendwell/internal/cli"
	"github.com/mkropat/spendwell/internal/common"
	"github.com/mkropat/spendwell/internal/importer"
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import expenses from a CSV file",
		Long: `Import expenses from a CSV file with the header "date,amount,category,description".

Each row is validated and saved independently: a malformed row is
reported and skipped, and the rest of the file still imports.

Examples:
  # Import a bank export
  spendwell import ~/Downloads/march.csv

  # Preview without writing anything
  spendwell import --dry-run ~/Downloads/march.csv

  # Skip rows already recorded
  spendwell import --skip-duplicates ~/Downloads/march.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	importCmd.Flags().BoolP("dry-run", "d", false, "Validate without saving")
	importCmd.Flags().Bool("skip-duplicates", false, "Reject rows that match an existing expense")
	importCmd.Flags().Bool("no-create", false, "Reject rows naming a category that does not exist")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipDuplicates, _ := cmd.Flags().GetBool("skip-duplicates")
	noCreate, _ := cmd.Flags().GetBool("no-create")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read %s", args[0]), err)
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := newImportBar(countDataRows(data))
	imp := importer.New(store, importer.Options{
		DryRun:         dryRun,
		SkipDuplicates: skipDuplicates,
		NoCreate:       noCreate,
		OnRow: func() {
			_ = bar.Add(1)
		},
	})

	result, err := imp.ImportCSV(ctx, bytes.NewReader(data))
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	renderImportResult(result, dryRun)
	return nil
}

// countDataRows estimates the number of CSV rows after the header so
// the progress bar has a total. Quoted multi-line fields make this an
// estimate, which is fine for display.
func countDataRows(data []byte) int {
	rows := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		rows++
	}
	rows-- // header
	if rows < 0 {
		rows = 0
	}
	return rows
}

func newImportBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing rows..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func renderImportResult(result *importer.Result, dryRun bool) {
	if dryRun {
		fmt.Println(cli.InfoStyle.Render("Dry run - nothing was saved."))
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d expenses (%d rejected)",
		result.Imported, result.Rejected)))

	if len(result.CreatedCategories) > 0 {
		fmt.Printf("New categories: %s\n", strings.Join(result.CreatedCategories, ", "))
	}

	if len(result.Failures) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(cli.FormatWarning("Rejected rows:"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\n",
		cli.HeaderStyle.Render("Line"),
		cli.HeaderStyle.Render("Reason"),
		cli.HeaderStyle.Render("Row"))
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "%d\t%s\t%s\n", failure.Line, failure.Err, truncate(failure.Raw, 50))
	}
}
