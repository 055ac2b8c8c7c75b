// Package admin provides maintenance operations that run outside of an import.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// ErrResetRefused is returned when a reset runs outside development or test.
var ErrResetRefused = errors.New("reset refused: environment does not allow destructive imports")

// RosterTables are the tables Reset empties, dependents first. Departments
// are kept so the next import finds its partition.
var RosterTables = []string{
	"links", "incidents", "license_plates", "locations",
	"salaries", "assignments", "unit_types", "jobs", "officers",
}

// Truncater empties one table and restarts its id sequence.
type Truncater interface {
	Truncate(ctx context.Context, table string) error
}

// Reset empties the roster of a development or test database.
type Reset struct {
	Store   Truncater
	Allowed bool // the environment permits destructive operations
}

// All truncates every roster table.
// This is a destructive operation - use with caution.
func (r *Reset) All(ctx context.Context) error {
	if !r.Allowed {
		return ErrResetRefused
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	return r.runResets(ctx, RosterTables)
}

func (r *Reset) runResets(ctx context.Context, tables []string) error {
	for _, table := range tables {
		if err := r.Store.Truncate(ctx, table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
		slog.Debug("table reset", "table", table)
	}
	return nil
}
