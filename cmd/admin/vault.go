package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"saasbooks/internal/vault"
)

func newVaultCmd(loadKey keyLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect the encryption key and seed ciphertexts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openVault(loadKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "encryption key ok")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "encrypt",
		Short:   "Encrypt a secret read from stdin",
		Example: `  printf '%s' "$STRIPE_KEY" | admin vault encrypt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := openVault(loadKey)
			if err != nil {
				return err
			}
			raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
			secret := strings.TrimRight(string(raw), "\r\n")
			if secret == "" {
				return fmt.Errorf("empty secret on stdin")
			}
			token, err := box.Encrypt(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})
	return cmd
}

func openVault(loadKey keyLoader) (*vault.Vault, error) {
	key, err := loadKey()
	if err != nil {
		return nil, err
	}
	box := vault.New(key)
	if err := box.CheckKey(); err != nil {
		return nil, err
	}
	return box, nil
}
