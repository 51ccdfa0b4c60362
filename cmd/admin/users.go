package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"saasbooks/internal/repository"
	"saasbooks/internal/service"
)

func newUsersCmd(open poolOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(newCreateUserCmd(open))
	return cmd
}

func newCreateUserCmd(open poolOpener) *cobra.Command {
	var (
		email    string
		name     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a password user",
		Long: `Create a user with email and password. The password is prompted
when --password is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("missing required flag: --email")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				var err error
				password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}

			pool, logger, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer logger.Sync()

			users := service.NewUserService(logger, repository.NewPgUserRepository(pool), nil)
			user, err := users.Register(cmd.Context(), service.RegisterInput{Email: email, Name: name, Password: password})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created with id %s\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "user email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the email local part)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

// readPassword usa el terminal sin eco cuando stdin es una TTY y cae a una
// linea de texto en pipes y tests.
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
