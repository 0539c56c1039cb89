package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkropat/spendwell/internal/cli"
	"github.com/mkropat/spendwell/internal/common"
	"github.com/mkropat/spendwell/internal/model"
	"github.com/mkropat/spendwell/internal/service"
)

const descriptionColumnWidth = 40

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Record and manage expenses",
		Long:  `Add, list, update, and delete individual expense records.`,
	}

	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(updateExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())

	return cmd
}

func addExpenseCmd() *cobra.Command {
	var (
		dateFlag     string
		amountFlag   string
		categoryFlag string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Long: `Record a new expense. The category must already exist; create it
first with 'spendwell categories add' if needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			date := time.Now()
			if dateFlag != "" {
				parsed, err := model.ParseDate(dateFlag)
				if err != nil {
					return err
				}
				date = parsed
			}

			amount, err := model.ParseAmount(amountFlag)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := store.GetCategoryByName(ctx, categoryFlag)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("category %q does not exist; add it first with 'spendwell categories add'", categoryFlag)
				}
				return fmt.Errorf("failed to look up category: %w", err)
			}

			expense := &model.Expense{
				Date:        date,
				Amount:      amount,
				CategoryID:  cat.ID,
				Description: description,
				Hash:        model.ComputeHash(date, amount, cat.Name, description),
			}
			if err := store.CreateExpense(ctx, expense); err != nil {
				return fmt.Errorf("failed to record expense: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Logged %s under %q (ID: %d)",
				formatAmount(expense.Amount), cat.Name, expense.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "expense date as "+model.DateFormat+" (default: today)")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "amount, e.g. 25.50 (negative for refunds)")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "category name")
	cmd.Flags().StringVar(&description, "description", "", "free-text description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		fromFlag     string
		toFlag       string
		categoryFlag string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Long:  `List expenses, newest first, optionally filtered by date range or category.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.ExpenseFilter{Limit: limit}
			if fromFlag != "" {
				from, err := model.ParseDate(fromFlag)
				if err != nil {
					return err
				}
				filter.Start = &from
			}
			if toFlag != "" {
				to, err := model.ParseDate(toFlag)
				if err != nil {
					return err
				}
				filter.End = &to
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if categoryFlag != "" {
				cat, err := store.GetCategoryByName(ctx, categoryFlag)
				if err != nil {
					if errors.Is(err, common.ErrNotFound) {
						return fmt.Errorf("category %q does not exist", categoryFlag)
					}
					return fmt.Errorf("failed to look up category: %w", err)
				}
				filter.CategoryID = &cat.ID
			}

			expenses, err := store.ListExpenses(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list expenses: %w", err)
			}

			renderExpenseTable(os.Stdout, expenses)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "earliest date to include ("+model.DateFormat+")")
	cmd.Flags().StringVar(&toFlag, "to", "", "latest date to include ("+model.DateFormat+")")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "only this category")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to show (0 = all)")

	return cmd
}

func updateExpenseCmd() *cobra.Command {
	var (
		dateFlag     string
		amountFlag   string
		categoryFlag string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an expense",
		Long:  `Update one or more fields of an expense by its ID. Unspecified fields are left unchanged.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid expense ID: %w", err)
			}

			var update service.ExpenseUpdate
			if dateFlag != "" {
				date, err := model.ParseDate(dateFlag)
				if err != nil {
					return err
				}
				update.Date = &date
			}
			if amountFlag != "" {
				amount, err := model.ParseAmount(amountFlag)
				if err != nil {
					return err
				}
				update.Amount = &amount
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if categoryFlag != "" {
				cat, err := store.GetCategoryByName(ctx, categoryFlag)
				if err != nil {
					if errors.Is(err, common.ErrNotFound) {
						return fmt.Errorf("category %q does not exist", categoryFlag)
					}
					return fmt.Errorf("failed to look up category: %w", err)
				}
				update.CategoryID = &cat.ID
			}

			if update.IsEmpty() {
				return fmt.Errorf("must specify at least one of --date, --amount, --category, --description")
			}

			if err := store.UpdateExpense(ctx, id, update); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("expense with ID %d not found", id)
				}
				return fmt.Errorf("failed to update expense: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated expense %d", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "new date ("+model.DateFormat+")")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "new amount")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "new category name")
	cmd.Flags().StringVar(&description, "description", "", "new description")

	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid expense ID: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteExpense(ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("expense with ID %d not found", id)
				}
				return fmt.Errorf("failed to delete expense: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted expense %d", id)))
			return nil
		},
	}
}

// renderExpenseTable prints expenses as an aligned console table.
func renderExpenseTable(w *os.File, expenses []model.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, cli.InfoStyle.Render("The expense log is empty."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("Date"),
		cli.HeaderStyle.Render("Amount"),
		cli.HeaderStyle.Render("Category"),
		cli.HeaderStyle.Render("Description"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 5),
		strings.Repeat("-", 10),
		strings.Repeat("-", 10),
		strings.Repeat("-", 15),
		strings.Repeat("-", descriptionColumnWidth))

	for _, exp := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			exp.ID,
			exp.Date.Format(model.DateFormat),
			formatAmount(exp.Amount),
			exp.CategoryName,
			truncate(exp.Description, descriptionColumnWidth))
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
