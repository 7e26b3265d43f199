package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/budget"
	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/config"
	"github.com/marchbank/pennywort/internal/sheets"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show budget analytics for the year",
		Long: `Summarize the year's budget: monthly totals, trend classification,
variance, and recommendations. With --export-sheets the report is also
published to Google Sheets using the configured credentials.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			exportSheets, _ := cmd.Flags().GetBool("export-sheets")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sess, err := openSession(ctx, store, year, month)
			if err != nil {
				return err
			}
			defer sess.Close()

			formatter, err := initFormatter()
			if err != nil {
				return err
			}

			snap := sess.Analytics()
			monthlyTotals := make([]float64, 12)
			for m := 1; m <= 12; m++ {
				monthlyTotals[m-1] = sess.TotalForMonth(m)
			}

			fmt.Println(renderReport(sess.Year(), snap, monthlyTotals, formatter))

			if !exportSheets {
				return nil
			}

			sheetsCfg, err := config.LoadSheetsConfig()
			if err != nil {
				return fmt.Errorf("sheets configuration: %w", err)
			}

			writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
			if err != nil {
				return fmt.Errorf("failed to create sheets writer: %w", err)
			}

			report := &sheets.Report{
				Spent:         sess.SpentByCategory(),
				Analytics:     snap,
				MonthlyTotals: monthlyTotals,
				Year:          sess.Year(),
				Month:         sess.Month(),
			}
			if err := writer.Write(ctx, report); err != nil {
				return fmt.Errorf("failed to export report: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Report exported to Google Sheets"))
			return nil
		},
	}

	cmd.Flags().Int("month", 0, "month 1-12 (default: current month)")
	cmd.Flags().Int("year", 0, "year (default: current year)")
	cmd.Flags().Bool("export-sheets", false, "also publish the report to Google Sheets")
	return cmd
}

func renderReport(year int, snap budget.Snapshot, monthlyTotals []float64, formatter interface{ Format(float64) string }) string {
	var b strings.Builder

	var yearTotal float64
	for _, t := range monthlyTotals {
		yearTotal += t
	}

	fmt.Fprintf(&b, "%-20s %s\n", "Total budgeted", formatter.Format(yearTotal))
	fmt.Fprintf(&b, "%-20s %d\n", "Categories", len(snap.CategoryDistribution))
	fmt.Fprintf(&b, "%-20s %s\n", "Trend", string(snap.Trend))
	fmt.Fprintf(&b, "%-20s %.2f\n", "Monthly variance", snap.MonthlyVariance)

	b.WriteString("\nMonthly totals\n")
	for i, total := range monthlyTotals {
		if total == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-12s %s\n", time.Month(i+1), formatter.Format(total))
	}

	if len(snap.CategoryDistribution) > 0 {
		b.WriteString("\nCategory distribution (year)\n")
		names := make([]string, 0, len(snap.CategoryDistribution))
		for name := range snap.CategoryDistribution {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, z := snap.CategoryDistribution[names[i]], snap.CategoryDistribution[names[j]]
			if a != z {
				return a > z
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			fmt.Fprintf(&b, "  %-24s %s\n", name, formatter.Format(snap.CategoryDistribution[name]))
		}
	}

	if len(snap.Recommendations) > 0 {
		b.WriteString("\nRecommendations\n")
		for _, rec := range snap.Recommendations {
			fmt.Fprintf(&b, "  %s %s\n", cli.InfoIcon, rec)
		}
	}

	return cli.RenderBox(fmt.Sprintf("%s Budget Report %d", cli.ChartIcon, year), b.String())
}
