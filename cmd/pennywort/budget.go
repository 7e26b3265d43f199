package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/cli"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly budget categories",
	}

	cmd.PersistentFlags().Int("month", 0, "month 1-12 (default: current month)")
	cmd.PersistentFlags().Int("year", 0, "year (default: current year)")

	cmd.AddCommand(budgetAddCmd())
	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetRenameCmd())
	cmd.AddCommand(budgetDeleteCmd())
	cmd.AddCommand(budgetListCmd())
	cmd.AddCommand(budgetYearsCmd())

	return cmd
}

func budgetYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List years that have budget data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lister, ok := store.(interface {
				GetBudgetYears(ctx context.Context) ([]int, error)
			})
			if !ok {
				return fmt.Errorf("storage backend does not support year listing")
			}

			years, err := lister.GetBudgetYears(ctx)
			if err != nil {
				return fmt.Errorf("failed to list years: %w", err)
			}
			if len(years) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No budget data yet."))
				return nil
			}
			for _, y := range years {
				fmt.Println(y)
			}
			return nil
		},
	}
}

func budgetAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Add a category to the monthly budget",
		Long: `Add a budget category. By default the category is applied to the given
month and every later month of the year; --this-month-only restricts it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			thisMonthOnly, _ := cmd.Flags().GetBool("this-month-only")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.AddCategory(ctx, sess.Month(), args[0], amount, !thisMonthOnly); err != nil {
				return formatSessionError(sess, err)
			}

			formatter, err := initFormatter()
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %q at %s", args[0], formatter.Format(amount))))
			return nil
		},
	}

	cmd.Flags().Bool("this-month-only", false, "do not propagate to later months")
	return cmd
}

func budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <amount>",
		Short: "Change the amount of an existing category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.UpdateCategory(ctx, sess.Month(), args[0], amount); err != nil {
				return formatSessionError(sess, err)
			}

			formatter, err := initFormatter()
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Set %q to %s", args[0], formatter.Format(amount))))
			return nil
		},
	}
}

func budgetRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <old-name> <new-name> <amount>",
		Short: "Rename a category and set its amount",
		Long: `Rename a budget category, setting a new amount at the same time.
An amount of 0 deletes the category instead.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
			thisMonthOnly, _ := cmd.Flags().GetBool("this-month-only")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.RenameCategory(ctx, sess.Month(), args[0], args[1], amount, !thisMonthOnly); err != nil {
				return formatSessionError(sess, err)
			}

			if amount == 0 {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %q", args[0])))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Renamed %q to %q", args[0], args[1])))
			}
			return nil
		},
	}

	cmd.Flags().Bool("this-month-only", false, "do not propagate to later months")
	return cmd
}

func budgetDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category from the budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thisMonthOnly, _ := cmd.Flags().GetBool("this-month-only")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.DeleteCategory(ctx, args[0], sess.Month(), !thisMonthOnly); err != nil {
				return formatSessionError(sess, err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %q", args[0])))
			return nil
		},
	}

	cmd.Flags().Bool("this-month-only", false, "delete from this month only")
	return cmd
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the month's budget categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			formatter, err := initFormatter()
			if err != nil {
				return err
			}

			snapshot := sess.MonthSnapshot(sess.Month())
			spent := sess.SpentByCategory()

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s %d", time.Month(sess.Month()), sess.Year())))
			if len(snapshot) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No categories budgeted this month."))
				return nil
			}

			names := make([]string, 0, len(snapshot))
			for name := range snapshot {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-28s %12s %12s", "Category", "Budgeted", "Spent")))
			for _, name := range names {
				line := fmt.Sprintf("%-28s %12s %12s", name, formatter.Format(snapshot[name]), formatter.Format(spent[name]))
				if spent[name] > snapshot[name] {
					line = cli.ErrorStyle.Render(line)
				}
				fmt.Println(line)
			}
			fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("%-28s %12s", "Total", formatter.Format(sess.TotalForMonth(sess.Month())))))
			return nil
		},
	}
}

// formatSessionError turns validation failures into readable CLI output.
func formatSessionError(sess interface{ ValidationErrors() map[string]string }, err error) error {
	fields := sess.ValidationErrors()
	if len(fields) == 0 {
		return err
	}
	for _, msg := range fields {
		fmt.Println(cli.FormatWarning(msg))
	}
	return err
}
