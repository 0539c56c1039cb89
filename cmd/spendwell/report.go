package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mkropat/spendwell/internal/cli"
	"github.com/mkropat/spendwell/internal/model"
	"github.com/mkropat/spendwell/internal/service"
)

func reportCmd() *cobra.Command {
	var (
		fromFlag string
		toFlag   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show spending totals by category",
		Long:  `Summarize expenses per category over an optional date range.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var start, end *time.Time
			if fromFlag != "" {
				parsed, err := model.ParseDate(fromFlag)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				start = &parsed
			}
			if toFlag != "" {
				parsed, err := model.ParseDate(toFlag)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				end = &parsed
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			totals, err := store.CategoryTotals(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to compute totals: %w", err)
			}

			renderReport(totals)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "earliest date to include ("+model.DateFormat+")")
	cmd.Flags().StringVar(&toFlag, "to", "", "latest date to include ("+model.DateFormat+")")

	return cmd
}

func renderReport(totals []service.CategoryTotal) {
	if len(totals) == 0 {
		fmt.Println(cli.InfoStyle.Render("No expenses recorded."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\n",
		cli.HeaderStyle.Render("Category"),
		cli.HeaderStyle.Render("Expenses"),
		cli.HeaderStyle.Render("Total"))
	fmt.Fprintf(w, "%s\t%s\t%s\n",
		strings.Repeat("-", 15),
		strings.Repeat("-", 8),
		strings.Repeat("-", 10))

	grand := decimal.Zero
	count := 0
	for _, total := range totals {
		fmt.Fprintf(w, "%s\t%d\t%s\n", total.Category, total.Count, formatAmount(total.Total))
		grand = grand.Add(total.Total)
		count += total.Count
	}

	fmt.Fprintf(w, "%s\t%d\t%s\n", cli.SubtleStyle.Render("all categories"), count, formatAmount(grand))
}

// formatAmount renders a decimal as currency, e.g. "$25.50" or "-$7.00".
func formatAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Abs().StringFixed(2)
	}
	return "$" + amount.StringFixed(2)
}
