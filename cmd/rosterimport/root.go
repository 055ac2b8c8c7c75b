package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rosterimport/internal/config"
	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/logging"
)

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "rosterimport",
		Short:         "Reconcile roster CSV extracts into the registry database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Overload lets a local .env win over the shell environment.
			if err := godotenv.Overload(); err == nil {
				slog.Debug("loaded .env file")
			}

			loaded, err := config.Load()
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
			}
			logging.Setup(loaded.Logging.Level, loaded.Logging.Format)
			slog.Debug("configuration loaded", "config", loaded.String())
			*cfg = *loaded
			return nil
		},
	}
	cmd.AddCommand(newImportCmd(cfg))
	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.AddCommand(newDepartmentCmd(cfg))
	cmd.AddCommand(newResetCmd(cfg))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		os.Exit(code)
	}
}
