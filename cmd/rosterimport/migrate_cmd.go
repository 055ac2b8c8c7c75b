package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rosterimport/internal/config"
	"github.com/JonMunkholm/rosterimport/internal/store/postgres"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cfg, status)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Print the applied schema version and exit")
	return cmd
}

func runMigrate(ctx context.Context, cfg *config.Config, status bool) error {
	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	table := cfg.Import.MigrationsTable
	if !status {
		if err := postgres.Migrate(ctx, pool, table); err != nil {
			return withCode(exitDB, err)
		}
	}

	v, err := postgres.SchemaVersion(ctx, pool, table)
	if err != nil {
		return withCode(exitDB, err)
	}
	slog.Info("schema version", "version", v, "table", table)
	fmt.Printf("schema version %d\n", v)
	return nil
}
