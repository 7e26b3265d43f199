package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/model"
)

func purchaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Log and list purchases",
	}

	cmd.AddCommand(purchaseLogCmd())
	cmd.AddCommand(purchaseListCmd())

	return cmd
}

func purchaseLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <amount> <category> [note]",
		Short: "Record a purchase against a category",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			dateStr, _ := cmd.Flags().GetString("date")
			date := time.Now()
			if dateStr != "" {
				date, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
				}
			}

			note := ""
			if len(args) == 3 {
				note = args[2]
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			purchase := model.Purchase{
				Date:     date,
				Amount:   amount,
				Category: args[1],
				Note:     note,
			}
			purchase.Hash = purchase.GenerateHash()

			if err := store.SavePurchases(ctx, []model.Purchase{purchase}); err != nil {
				return fmt.Errorf("failed to save purchase: %w", err)
			}

			formatter, err := initFormatter()
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Logged %s against %q on %s",
				formatter.Format(amount), args[1], date.Format("2006-01-02"))))
			return nil
		},
	}

	cmd.Flags().String("date", "", "purchase date as YYYY-MM-DD (default: today)")
	return cmd
}

func purchaseListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List purchases for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}

			start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 1, 0).Add(-time.Second)

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

			formatter, err := initFormatter()
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Purchases %s %d", time.Month(month), year)))
			if len(purchases) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No purchases recorded."))
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-24s %12s  %s", "Date", "Category", "Amount", "Note")))
			var total float64
			for _, p := range purchases {
				total += p.Amount
				fmt.Printf("%-12s %-24s %12s  %s\n",
					p.Date.Format("2006-01-02"), p.Category, formatter.Format(p.Amount), p.Note)
			}
			fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("%-37s %12s", "Total", formatter.Format(total))))
			return nil
		},
	}

	cmd.Flags().Int("month", 0, "month 1-12 (default: current month)")
	cmd.Flags().Int("year", 0, "year (default: current year)")
	return cmd
}
