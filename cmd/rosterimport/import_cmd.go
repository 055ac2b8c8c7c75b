package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rosterimport/internal/config"
	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/engine"
	"github.com/JonMunkholm/rosterimport/internal/metrics"
	"github.com/JonMunkholm/rosterimport/internal/metrics/prompush"
	"github.com/JonMunkholm/rosterimport/internal/store/postgres"
)

type importFlags struct {
	partitionName   string
	partitionRegion string

	paths map[core.FileKind]*string

	forceCreate          bool
	overwriteAssignments bool
	updateByName         bool
	matchByBadge         bool
	noCreate             bool
	updateStaticFields   bool
}

func newImportCmd(cfg *config.Config) *cobra.Command {
	f := importFlags{paths: make(map[core.FileKind]*string)}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one department's extracts in a single transaction",
		Example: `  rosterimport import --partition-name "Springfield PD" --partition-region IL \
    --officers officers.csv --assignments assignments.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cfg, f, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.partitionName, "partition-name", "", "Department name (required)")
	flags.StringVar(&f.partitionRegion, "partition-region", "", "Department state, code or name (required)")
	for _, spec := range core.All() {
		f.paths[spec.Kind] = flags.String(string(spec.Kind), "", fmt.Sprintf("Path to the %s CSV", spec.Label))
	}
	flags.BoolVar(&f.forceCreate, "force-create", false, "Delete and re-insert rows with explicit ids (development and test only)")
	flags.BoolVar(&f.overwriteAssignments, "overwrite-assignments", false, "Replace all assignments of the officers in the assignments file")
	flags.BoolVar(&f.updateByName, "update-by-name", false, "Match officers without an id by first and last name")
	flags.BoolVar(&f.matchByBadge, "match-by-badge", false, "Match officers without an id by name and badge number")
	flags.BoolVar(&f.noCreate, "no-create", false, "Fail on officer rows that match no existing officer")
	flags.BoolVar(&f.updateStaticFields, "update-static-fields", false, "Allow changing unique identifier, race, employment date and birth year")
	_ = cmd.MarkFlagRequired("partition-name")
	_ = cmd.MarkFlagRequired("partition-region")

	return cmd
}

// options turns the flags into engine options.
func (f importFlags) options(cfg *config.Config) (engine.Options, error) {
	if f.updateByName && f.matchByBadge {
		return engine.Options{}, errors.New("--update-by-name and --match-by-badge cannot be combined")
	}

	opts := engine.Options{
		PartitionName:      f.partitionName,
		PartitionRegion:    f.partitionRegion,
		NoCreate:           f.noCreate,
		AllowStaticUpdates: f.updateStaticFields,
		ForceCreateAllowed: cfg.App.AllowsDestructiveImports(),
		ProgressEvery:      cfg.Import.ProgressEvery,
	}
	if f.forceCreate {
		opts.Create = engine.ForceRecreate
	}
	if f.overwriteAssignments {
		opts.Assignments = engine.AssignmentOverwrite
	}
	switch {
	case f.updateByName:
		opts.Match = engine.MatchByName
	case f.matchByBadge:
		opts.Match = engine.MatchByBadge
	}
	return opts, opts.Validate()
}

func (f importFlags) filePaths() map[core.FileKind]string {
	out := make(map[core.FileKind]string, len(f.paths))
	for kind, p := range f.paths {
		if p != nil && *p != "" {
			out[kind] = *p
		}
	}
	return out
}

func runImport(ctx context.Context, cfg *config.Config, f importFlags, out io.Writer) error {
	opts, err := f.options(cfg)
	if err != nil {
		return withCode(exitUsage, err)
	}

	paths := f.filePaths()
	if len(paths) == 0 {
		return withCode(exitUsage, errors.New("no input files given"))
	}
	tables, err := engine.LoadTables(paths)
	if err != nil {
		return withCode(exitValidation, err)
	}

	if cfg.Metrics.MetricsEnabled() {
		backend, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			return withCode(exitUsage, err)
		}
		metrics.SetBackend(backend)
		defer func() {
			if err := metrics.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "push metrics: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
	defer cancel()

	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	eng, err := engine.New(postgres.New(pool), opts)
	if err != nil {
		return withCode(exitUsage, err)
	}

	report, err := eng.Run(ctx, tables)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s committed for %s (%s)\n", report.RunID, report.Department.Name, report.Department.Region)
	fmt.Fprint(out, report.Summary())
	return nil
}
