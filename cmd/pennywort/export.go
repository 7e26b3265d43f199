package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/export"
	"github.com/marchbank/pennywort/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export budgets and purchases as CSV",
	}

	cmd.PersistentFlags().StringP("output", "o", "", "output file (default: stdout)")

	cmd.AddCommand(exportPurchasesCmd())
	cmd.AddCommand(exportBudgetsCmd())

	return cmd
}

// outputWriter resolves the --output flag into a writer. The returned
// cleanup is a no-op for stdout.
func outputWriter(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func exportPurchasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchases",
		Short: "Export purchases for a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startStr, _ := cmd.Flags().GetString("start")
			endStr, _ := cmd.Flags().GetString("end")

			now := time.Now()
			start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
			end := now
			var err error
			if startStr != "" {
				start, err = time.Parse("2006-01-02", startStr)
				if err != nil {
					return fmt.Errorf("invalid start date %q: %w", startStr, err)
				}
			}
			if endStr != "" {
				end, err = time.Parse("2006-01-02", endStr)
				if err != nil {
					return fmt.Errorf("invalid end date %q: %w", endStr, err)
				}
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			purchases, err := store.GetPurchasesByPeriod(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to load purchases: %w", err)
			}

			w, closeFn, err := outputWriter(cmd)
			if err != nil {
				return err
			}

			if err := export.WritePurchases(w, purchases); err != nil {
				_ = closeFn()
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			if err := closeFn(); err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Exported %d purchases to %s", len(purchases), path)))
			}
			return nil
		},
	}

	cmd.Flags().String("start", "", "start date YYYY-MM-DD (default: January 1st)")
	cmd.Flags().String("end", "", "end date YYYY-MM-DD (default: today)")
	return cmd
}

func exportBudgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Export a year's budget entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			if year == 0 {
				year = time.Now().Year()
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var entries []model.BudgetEntry
			for month := 1; month <= 12; month++ {
				monthEntries, err := store.GetMonthlyBudgets(ctx, month, year)
				if err != nil {
					return fmt.Errorf("failed to load budgets for %d-%02d: %w", year, month, err)
				}
				entries = append(entries, monthEntries...)
			}

			w, closeFn, err := outputWriter(cmd)
			if err != nil {
				return err
			}

			if err := export.WriteBudgets(w, entries); err != nil {
				_ = closeFn()
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			if err := closeFn(); err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Exported %d budget entries to %s", len(entries), path)))
			}
			return nil
		},
	}

	cmd.Flags().Int("year", 0, "year to export (default: current year)")
	return cmd
}
