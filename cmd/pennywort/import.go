package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/export"
	"github.com/marchbank/pennywort/internal/model"
	"github.com/marchbank/pennywort/internal/ofx"
	"github.com/marchbank/pennywort/internal/plaid"
	"github.com/marchbank/pennywort/internal/service"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import purchases and budgets from external sources",
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importBudgetsCmd())
	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importPlaidCmd())

	return cmd
}

// newImportBar builds the progress bar used by file imports.
func newImportBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]%s[reset]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// savePurchaseBatches persists purchases in batches so the progress bar
// advances meaningfully on large imports.
func savePurchaseBatches(cmd *cobra.Command, store service.Storage, purchases []model.Purchase, description string) error {
	const batchSize = 50

	bar := newImportBar(len(purchases), description)
	for i := 0; i < len(purchases); i += batchSize {
		end := i + batchSize
		if end > len(purchases) {
			end = len(purchases)
		}
		if err := store.SavePurchases(cmd.Context(), purchases[i:end]); err != nil {
			return fmt.Errorf("failed to save purchases: %w", err)
		}
		if err := bar.Add(end - i); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
	return nil
}

func importCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv <file>",
		Short: "Import purchases from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			purchases, err := export.ParsePurchases(f)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(purchases) == 0 {
				fmt.Println(cli.FormatWarning("No purchases found in file"))
				return nil
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := savePurchaseBatches(cmd, store, purchases, "Importing purchases..."); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d purchases from %s", len(purchases), args[0])))
			return nil
		},
	}
}

func importBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budgets <file>",
		Short: "Import budget entries from a CSV export",
		Long: `Import budget entries. Entries replace the stored budget for each
year present in the file; years not mentioned are untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			entries, err := export.ParseBudgets(f)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(entries) == 0 {
				fmt.Println(cli.FormatWarning("No budget entries found in file"))
				return nil
			}

			byYear := make(map[int][]model.BudgetEntry)
			for _, e := range entries {
				byYear[e.Year] = append(byYear[e.Year], e)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for year, yearEntries := range byYear {
				if err := store.SaveBudgets(ctx, year, yearEntries); err != nil {
					return fmt.Errorf("failed to save budgets for %d: %w", year, err)
				}
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d budget entries across %d year(s)", len(entries), len(byYear))))
			return nil
		},
	}
}

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ofx <file>...",
		Short: "Import purchases from OFX/QFX bank exports",
		Long: `Parse one or more OFX or QFX files downloaded from a bank and store
their debit transactions as purchases. Glob patterns are expanded, so
'pennywort import ofx ~/Downloads/*.qfx' works. Duplicate transactions
are detected by content hash and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, arg := range args {
				matches, err := filepath.Glob(arg)
				if err != nil {
					return fmt.Errorf("invalid pattern %q: %w", arg, err)
				}
				if len(matches) == 0 {
					// Not a pattern; let os.Open report the real error.
					matches = []string{arg}
				}
				files = append(files, matches...)
			}

			ctx := cmd.Context()
			parser := ofx.NewParser()

			var purchases []model.Purchase
			for _, file := range files {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				parsed, err := parser.ParseFile(ctx, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", file, err)
				}
				slog.Info("Parsed OFX file", "file", file, "purchases", len(parsed))
				purchases = append(purchases, parsed...)
			}

			if len(purchases) == 0 {
				fmt.Println(cli.FormatWarning("No debit transactions found"))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := savePurchaseBatches(cmd, store, purchases, "Importing transactions..."); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from %d file(s)", len(purchases), len(files))))
			return nil
		},
	}
}

func importPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Fetch purchases from Plaid",
		Long: `Fetch transactions from the Plaid API for a date range and store the
debits as purchases. Credentials come from the plaid.* config keys or
the PENNYWORT_PLAID_* environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startStr, _ := cmd.Flags().GetString("start")
			endStr, _ := cmd.Flags().GetString("end")

			end := time.Now()
			start := end.AddDate(0, -1, 0)
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

			client, err := plaid.NewClient(plaid.Config{
				ClientID:    viper.GetString("plaid.client_id"),
				Secret:      viper.GetString("plaid.secret"),
				Environment: viper.GetString("plaid.environment"),
				AccessToken: viper.GetString("plaid.access_token"),
			})
			if err != nil {
				return fmt.Errorf("plaid configuration: %w", err)
			}

			ctx := cmd.Context()
			purchases, err := client.GetPurchases(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}
			if len(purchases) == 0 {
				fmt.Println(cli.FormatWarning("No debit transactions in range"))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := savePurchaseBatches(cmd, store, purchases, "Importing transactions..."); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from Plaid", len(purchases))))
			return nil
		},
	}

	cmd.Flags().String("start", "", "start date YYYY-MM-DD (default: one month ago)")
	cmd.Flags().String("end", "", "end date YYYY-MM-DD (default: today)")
	return cmd
}
