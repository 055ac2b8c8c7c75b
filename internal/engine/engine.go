// Package engine reconciles a set of roster extracts against a store.
//
// A run validates every file's columns, then applies the files in a fixed
// order (officers, assignments, salaries, incidents, links) inside a single
// transaction. Any error rolls the whole run back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/logging"
	"github.com/JonMunkholm/rosterimport/internal/metrics"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

// Tables holds at most one parsed extract per kind. Every kind is optional.
type Tables map[core.FileKind]*core.Table

// LoadTables reads the extracts at the given paths. Blank paths are skipped.
func LoadTables(paths map[core.FileKind]string) (Tables, error) {
	tables := make(Tables, len(paths))
	for kind, path := range paths {
		if path == "" {
			continue
		}
		spec, ok := core.Get(kind)
		if !ok {
			return nil, fmt.Errorf("unknown file kind %q", kind)
		}
		t, err := core.ReadFile(path, spec)
		if err != nil {
			return nil, err
		}
		tables[kind] = t
	}
	return tables, nil
}

// Engine runs imports against one store with fixed options.
type Engine struct {
	store store.Store
	opts  Options
}

// New validates opts and returns an engine.
func New(st store.Store, opts Options) (*Engine, error) {
	if st == nil {
		return nil, errors.New("engine: store is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{store: st, opts: opts}, nil
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// CheckSchema validates the columns of every table against its kind's
// contract in the engine's mode. All failures are reported together.
func (e *Engine) CheckSchema(tables Tables) error {
	mode := e.opts.SchemaMode()
	var errs []error

	for kind := range tables {
		if _, ok := core.Get(kind); !ok {
			errs = append(errs, fmt.Errorf("unknown file kind %q", kind))
		}
	}
	for _, spec := range core.All() {
		t, ok := tables[spec.Kind]
		if !ok || t == nil {
			continue
		}
		required, optional := spec.Columns(mode)
		if err := core.ValidateColumns(spec.Kind, t.Name, t.Header, required, optional); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run imports tables in one transaction and returns what changed. On error
// nothing is committed and the returned report describes the work that was
// rolled back.
func (e *Engine) Run(ctx context.Context, tables Tables) (*Report, error) {
	report := newReport(uuid.NewString())
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.FromContext(ctx)

	err := e.run(ctx, tables, report)
	report.Finished = time.Now()
	metrics.RecordRun(err)
	for _, entity := range report.Entities() {
		c := report.Counts(entity)
		metrics.RecordRows(entity, "processed", c.Processed)
		metrics.RecordRows(entity, "created", c.Created)
		metrics.RecordRows(entity, "updated", c.Updated)
		metrics.RecordRows(entity, "unchanged", c.Unchanged)
		metrics.RecordRows(entity, "deleted", c.Deleted)
		metrics.RecordRows(entity, "skipped", c.Skipped)
	}

	if err != nil {
		logger.Error("import rolled back", "error", err, "duration", report.Finished.Sub(report.Started))
		return report, err
	}
	logger.Info("import committed",
		"created", report.TotalCreated(),
		"updated", report.TotalUpdated(),
		"duration", report.Finished.Sub(report.Started),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context, tables Tables, report *Report) error {
	logger := logging.FromContext(ctx)
	logger.Info("import started",
		"partition", e.opts.PartitionName,
		"region", e.opts.PartitionRegion,
		"create", e.opts.Create.String(),
		"assignments", e.opts.Assignments.String(),
		"match", e.opts.Match.String(),
		"files", len(tables),
	)

	if err := e.CheckSchema(tables); err != nil {
		return err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	region, ok := core.NormalizeState(e.opts.PartitionRegion)
	if !ok {
		region = e.opts.PartitionRegion
	}
	dept, err := tx.FindDepartment(ctx, e.opts.PartitionName, region)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &core.ReferenceError{
				Entity: "partition",
				Value:  e.opts.PartitionName + " / " + e.opts.PartitionRegion,
				Reason: "does not exist",
			}
		}
		return fmt.Errorf("find department: %w", err)
	}
	report.Department = dept

	if err := tx.LockDepartment(ctx, dept.ID); err != nil {
		return fmt.Errorf("lock department %d: %w", dept.ID, err)
	}

	r, err := newRun(ctx, tx, e.opts, dept, report)
	if err != nil {
		return err
	}

	passes := map[core.FileKind]func(context.Context, *core.Table) error{
		core.KindOfficers:    r.officersPass,
		core.KindAssignments: r.assignmentsPass,
		core.KindSalaries:    r.salariesPass,
		core.KindIncidents:   r.incidentsPass,
		core.KindLinks:       r.linksPass,
	}

	for _, spec := range core.All() {
		t, ok := tables[spec.Kind]
		if !ok || t == nil {
			continue
		}
		pass, ok := passes[spec.Kind]
		if !ok {
			return fmt.Errorf("no handler for file kind %q", spec.Kind)
		}

		start := time.Now()
		err := pass(ctx, t)
		if err == nil {
			err = tx.Flush(ctx)
		}
		metrics.RecordStep(string(spec.Kind), err, time.Since(start))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	report.Committed = true

	if e.opts.Create == ForceRecreate {
		if err := e.store.ResyncSequences(ctx, store.ResyncTables); err != nil {
			return fmt.Errorf("resync id sequences: %w", err)
		}
		logger.Info("id sequences resynchronized", slog.Any("tables", store.ResyncTables))
	}
	return nil
}
