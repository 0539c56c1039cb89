package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkropat/spendwell/internal/importer"
	"github.com/mkropat/spendwell/internal/ofx"
)

func init() {
	importOFXCmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import expenses from OFX/QFX files",
		Long: `Import expenses from OFX or QFX (Quicken) files exported from your bank.

Statement transactions land in the category given by --category; sort
them afterwards with "spendwell expenses update".

Examples:
  # Import a single file
  spendwell import-ofx ~/Downloads/chase_jan_2024.qfx

  # Import everything from a directory into one category
  spendwell import-ofx --category "Checking" ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	importOFXCmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	importOFXCmd.Flags().String("category", "Uncategorized", "Category assigned to imported transactions")
	importOFXCmd.Flags().Bool("skip-duplicates", false, "Reject transactions that match an existing expense")

	rootCmd.AddCommand(importOFXCmd)
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	category, _ := cmd.Flags().GetString("category")
	skipDuplicates, _ := cmd.Flags().GetBool("skip-duplicates")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()
	var allRows []importer.Row

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		rows, err := parser.Parse(f, category)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}
		if len(rows) == 0 {
			slog.Warn("No transactions found in file", "file", filepath.Base(filePath))
			continue
		}

		// Renumber so failure reports point at a position within the
		// combined batch.
		for i := range rows {
			rows[i].Line = len(allRows) + i + 1
		}
		allRows = append(allRows, rows...)
		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"transactions", len(rows))
	}

	if len(allRows) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := newImportBar(len(allRows))
	imp := importer.New(store, importer.Options{
		DryRun:         dryRun,
		SkipDuplicates: skipDuplicates,
		OnRow: func() {
			_ = bar.Add(1)
		},
	})

	result, err := imp.Import(ctx, allRows)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	renderImportResult(result, dryRun)
	return nil
}
