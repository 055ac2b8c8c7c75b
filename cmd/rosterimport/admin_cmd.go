package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rosterimport/internal/admin"
	"github.com/JonMunkholm/rosterimport/internal/config"
	"github.com/JonMunkholm/rosterimport/internal/store/postgres"
)

func newDepartmentCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "department",
		Short: "Manage the departments imports are partitioned by",
	}

	var name, region string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a department, or print the existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepartmentAdd(cmd.Context(), cfg, name, region)
		},
	}
	add.Flags().StringVar(&name, "name", "", "Department name")
	add.Flags().StringVar(&region, "region", "", "State name or two-letter code")
	cmd.AddCommand(add)
	return cmd
}

func runDepartmentAdd(ctx context.Context, cfg *config.Config, name, region string) error {
	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	d, err := admin.AddDepartment(ctx, postgres.New(pool), name, region)
	if err != nil {
		return err
	}
	slog.Info("department ready", "id", d.ID, "name", d.Name, "region", d.Region)
	fmt.Printf("department %d: %s (%s)\n", d.ID, d.Name, d.Region)
	return nil
}

func newResetCmd(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty every roster table, keeping departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitUsage, errors.New("reset deletes all roster data; pass --yes to confirm"))
			}
			return runReset(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func runReset(ctx context.Context, cfg *config.Config) error {
	if !cfg.App.AllowsDestructiveImports() {
		return withCode(exitUsage, admin.ErrResetRefused)
	}

	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	r := &admin.Reset{Store: postgres.New(pool), Allowed: cfg.App.AllowsDestructiveImports()}
	if err := r.All(ctx); err != nil {
		return withCode(exitDB, err)
	}
	slog.Info("roster reset", "tables", len(admin.RosterTables))
	fmt.Println("roster tables emptied")
	return nil
}
