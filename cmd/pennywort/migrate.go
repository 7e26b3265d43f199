package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the database schema up to date. Every command migrates on
startup, so this is only needed to create the database ahead of time or
to verify that an upgrade applied cleanly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database schema is at version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}
}
