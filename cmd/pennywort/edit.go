package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/session"
	"github.com/marchbank/pennywort/internal/tui"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the budget interactively",
		Long: `Open the interactive terminal UI for browsing and editing the monthly
budget. Changes are validated as you type and auto-saved shortly after
you stop editing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sess, err := session.New(session.Config{
				Storage:  store,
				Reporter: logReporter{},
				Year:     year,
				Month:    month,
			})
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}

			formatter, err := initFormatter()
			if err != nil {
				return err
			}

			return tui.Run(ctx, sess, formatter)
		},
	}

	cmd.Flags().Int("month", 0, "month 1-12 (default: current month)")
	cmd.Flags().Int("year", 0, "year (default: current year)")
	return cmd
}
