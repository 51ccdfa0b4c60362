package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"saasbooks/internal/repository"
	"saasbooks/internal/service"
)

func newSessionsCmd(open poolOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(newRevokeAllCmd(open))
	cmd.AddCommand(newPurgeExpiredCmd(open))
	return cmd
}

func newRevokeAllCmd(open poolOpener) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:     "revoke-all",
		Short:   "Delete every session of a user",
		Example: `  admin sessions revoke-all --user 3f1c0c52-6f0e-4c55-9a53-0c1f4c0f6e11`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return errors.New("missing required flag: --user")
			}
			pool, logger, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer logger.Sync()

			sessions := service.NewSessionService(logger, repository.NewPgSessionRepository(pool), repository.NewPgUserRepository(pool))
			n, err := sessions.InvalidateAllSessions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	return cmd
}

func newPurgeExpiredCmd(open poolOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete sessions past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer logger.Sync()

			sessions := service.NewSessionService(logger, repository.NewPgSessionRepository(pool), repository.NewPgUserRepository(pool))
			n, err := sessions.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired session(s)\n", n)
			return nil
		},
	}
}
