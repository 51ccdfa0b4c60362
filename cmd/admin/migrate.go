package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"saasbooks/internal/db"
)

func newMigrateCmd(open poolOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Long: `Apply the embedded schema (users, sessions, drive_configs,
stripe_accounts). Statements are idempotent and can be re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer logger.Sync()

			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema applied")
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
