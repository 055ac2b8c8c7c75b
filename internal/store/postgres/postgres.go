// Package postgres implements store.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store is a store.Store backed by a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New returns a store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin starts a read-committed transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// ResyncSequences moves each table's id sequence past its maximum id.
func (s *Store) ResyncSequences(ctx context.Context, tables []string) error {
	for _, t := range tables {
		ident := pgx.Identifier{t}.Sanitize()
		q := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence($1, 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			ident)
		if _, err := s.pool.Exec(ctx, q, t); err != nil {
			return fmt.Errorf("resync sequence of %s: %w", t, err)
		}
	}
	return nil
}

// Truncate empties a table, restarting its identity and cascading to the
// tables that reference it.
func (s *Store) Truncate(ctx context.Context, table string) error {
	q := fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY CASCADE`, pgx.Identifier{table}.Sanitize())
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// AddDepartment inserts a department outside of any import run.
func (s *Store) AddDepartment(ctx context.Context, name, region string) (model.Department, error) {
	d := model.Department{Name: name, Region: region}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO departments (name, state) VALUES ($1, $2)
		 ON CONFLICT (name, state) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		name, region,
	).Scan(&d.ID)
	if err != nil {
		return model.Department{}, wrap("insert department", err)
	}
	return d, nil
}

// wrap classifies a pgx error: missing rows become store.ErrNotFound and
// constraint violations (SQLSTATE class 23) become core.IntegrityError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &core.IntegrityError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// optionalID is NULL for zero, letting the column default pick the id.
func optionalID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

// exactlyOne turns an UPDATE or DELETE that touched no row into ErrNotFound.
func exactlyOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}
