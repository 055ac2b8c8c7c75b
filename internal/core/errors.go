package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SchemaError reports every column problem of one file.
type SchemaError struct {
	Kind       FileKind
	File       string
	Missing    []string // required columns not present
	Unexpected []string // columns neither required nor optional
	Unnamed    []int    // 1-based positions of blank header cells
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Unnamed) > 0 {
		pos := make([]string, len(e.Unnamed))
		for i, n := range e.Unnamed {
			pos[i] = strconv.Itoa(n)
		}
		parts = append(parts, "blank column names at positions "+strings.Join(pos, ", "))
	}
	name := string(e.Kind)
	if e.File != "" {
		name = fmt.Sprintf("%s file %q", e.Kind, e.File)
	}
	return fmt.Sprintf("schema error in %s: %s", name, strings.Join(parts, "; "))
}

// ReferenceError is raised when a row names something that cannot be resolved:
// a partition, an officer, a unit, an incident or a forward-reference token.
type ReferenceError struct {
	Entity string // "officer", "token", "partition", ...
	Value  string
	Reason string
}

func (e *ReferenceError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not found"
	}
	return fmt.Sprintf("reference error: %s %q %s", e.Entity, e.Value, reason)
}

// ConflictError is raised when an existing officer's static field would change
// value without the override flag.
type ConflictError struct {
	OfficerID int64
	Field     string
	Old       string
	New       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict error: officer %d field %s would change from %q to %q (use the static field override to allow it)",
		e.OfficerID, e.Field, e.Old, e.New)
}

// AmbiguousMatchError is raised when name or badge matching finds more than
// one officer.
type AmbiguousMatchError struct {
	FirstName  string
	LastName   string
	Badge      string
	Candidates []int64
}

func (e *AmbiguousMatchError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, id := range e.Candidates {
		ids[i] = strconv.FormatInt(id, 10)
	}
	who := e.FirstName + " " + e.LastName
	if e.Badge != "" {
		who += " with badge " + e.Badge
	}
	return fmt.Sprintf("ambiguous match: %d officers match %s (ids %s)",
		len(e.Candidates), who, strings.Join(ids, ", "))
}

// IntegrityError wraps a store constraint failure together with the operation
// that triggered it.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error during %s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Constraint returns the violated constraint name when the store reported one.
func (e *IntegrityError) Constraint() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// FieldError reports a cell that could not be parsed.
type FieldError struct {
	Field   string
	Value   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// RowError locates an error in an input file.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// AtRow wraps err with its file position. Nil stays nil.
func AtRow(file string, line int, err error) error {
	if err == nil {
		return nil
	}
	var re *RowError
	if errors.As(err, &re) {
		return err
	}
	return &RowError{File: file, Line: line, Err: err}
}
