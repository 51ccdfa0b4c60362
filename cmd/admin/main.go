package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"saasbooks/internal/config"
	"saasbooks/internal/db"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "SaaSBooks operator tasks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd(openPool))
	root.AddCommand(newSessionsCmd(openPool))
	root.AddCommand(newUsersCmd(openPool))
	root.AddCommand(newVaultCmd(loadEncryptionKey))

	return root
}

// poolOpener abre la base; los comandos cierran lo que reciben.
type poolOpener func(ctx context.Context) (*pgxpool.Pool, *zap.Logger, error)

func openPool(ctx context.Context) (*pgxpool.Pool, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	return pool, logger, nil
}

type keyLoader func() (string, error)

// loadEncryptionKey solo exige ENCRYPTION_KEY; los comandos de vault no
// tocan la base.
func loadEncryptionKey() (string, error) {
	var cfg struct {
		EncryptionKey string `env:"ENCRYPTION_KEY,required,notEmpty"`
	}
	if err := env.Parse(&cfg); err != nil {
		return "", err
	}
	return cfg.EncryptionKey, nil
}
