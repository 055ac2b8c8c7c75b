//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JonMunkholm/rosterimport/internal/admin"
	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/engine"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
	"github.com/JonMunkholm/rosterimport/internal/store/postgres"
)

// newPool starts a throwaway Postgres, applies the migrations and returns a pool.
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("roster"),
		tcpostgres.WithUsername("roster"),
		tcpostgres.WithPassword("roster"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, ""))
	return pool
}

func TestMigrate_IsRepeatable(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, pool, ""))
	v, err := postgres.SchemaVersion(ctx, pool, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestStore_CRUDAndCascade(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	st := postgres.New(pool)

	dept, err := st.AddDepartment(ctx, "Springfield PD", "IL")
	require.NoError(t, err)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	found, err := tx.FindDepartment(ctx, "Springfield PD", "IL")
	require.NoError(t, err)
	assert.Equal(t, dept.ID, found.ID)
	_, err = tx.FindDepartment(ctx, "Nowhere", "IL")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, tx.LockDepartment(ctx, dept.ID))

	o := model.Officer{DepartmentID: dept.ID, FirstName: "Ann", LastName: "Lee",
		BirthYear: pgtype.Int4{Int32: 1990, Valid: true}}
	require.NoError(t, tx.InsertOfficer(ctx, &o))
	require.NotZero(t, o.ID)

	j := model.Job{DepartmentID: dept.ID, Title: "Officer"}
	require.NoError(t, tx.InsertJob(ctx, &j))
	dupJob := model.Job{DepartmentID: dept.ID, Title: "OFFICER"}
	err = tx.InsertJob(ctx, &dupJob)
	var integrity *core.IntegrityError
	require.True(t, errors.As(err, &integrity), "case-insensitive duplicate job should be an integrity error, got %v", err)
	assert.Equal(t, "jobs_department_title_key", integrity.Constraint())
}

func TestStore_SalaryRoundTripKeepsDecimals(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	st := postgres.New(pool)

	dept, err := st.AddDepartment(ctx, "Springfield PD", "IL")
	require.NoError(t, err)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	o := model.Officer{DepartmentID: dept.ID, FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, tx.InsertOfficer(ctx, &o))

	s := model.Salary{
		OfficerID: o.ID,
		Amount:    decimal.RequireFromString("65000.10"),
		Overtime:  decimal.NullDecimal{Decimal: decimal.RequireFromString("1200.55"), Valid: true},
		Year:      2023,
	}
	require.NoError(t, tx.InsertSalary(ctx, &s))

	got, err := tx.Salary(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(s.Amount))
	assert.True(t, model.DecimalEqual(got.Overtime, s.Overtime))

	// Deleting the officer cascades to the pay record.
	require.NoError(t, tx.DeleteOfficer(ctx, o.ID))
	_, err = tx.Salary(ctx, s.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEngine_ImportAgainstPostgres(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	st := postgres.New(pool)

	_, err := st.AddDepartment(ctx, "Springfield PD", "IL")
	require.NoError(t, err)

	officers, err := core.ParseTable([]byte(
		"id,partition_name,partition_region,first_name,last_name,birth_year\n"+
			"#1,Springfield PD,IL,Ann,Lee,1990\n"), "officers.csv", core.MustGet(core.KindOfficers))
	require.NoError(t, err)
	assignments, err := core.ParseTable([]byte(
		"id,officer_id,role_title,badge,unit_name,start_date\n"+
			",#1,Officer,123,Patrol,2020-01-15\n"), "assignments.csv", core.MustGet(core.KindAssignments))
	require.NoError(t, err)
	incidents, err := core.ParseTable([]byte(
		"id,partition_name,partition_region,report_number,street_name,city,state,officer_ids,plate_numbers\n"+
			"#i1,Springfield PD,IL,R-1,Main St,Springfield,IL,#1,ABC123_IL\n"), "incidents.csv", core.MustGet(core.KindIncidents))
	require.NoError(t, err)
	links, err := core.ParseTable([]byte(
		"id,url,title,officer_ids,incident_ids\n"+
			",https://example.com/a,Story,#1,#i1\n"), "links.csv", core.MustGet(core.KindLinks))
	require.NoError(t, err)

	tables := engine.Tables{
		core.KindOfficers:    officers,
		core.KindAssignments: assignments,
		core.KindIncidents:   incidents,
		core.KindLinks:       links,
	}

	eng, err := engine.New(st, engine.Options{PartitionName: "Springfield PD", PartitionRegion: "IL"})
	require.NoError(t, err)

	first, err := eng.Run(ctx, tables)
	require.NoError(t, err)
	assert.True(t, first.Committed)
	assert.Equal(t, 1, first.Counts(engine.EntityOfficers).Created)
	assert.Equal(t, 1, first.Counts(engine.EntityLinks).Created)

	second, err := eng.Run(ctx, tables)
	require.NoError(t, err)
	assert.Zero(t, second.TotalCreated(), "re-running the same files must not create rows")
	assert.Zero(t, second.TotalUpdated(), "re-running the same files must not change rows")
}

func TestReset_EmptiesRosterAndKeepsDepartments(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	st := postgres.New(pool)

	dept, err := admin.AddDepartment(ctx, st, "Springfield PD", "Illinois")
	require.NoError(t, err)
	assert.Equal(t, "IL", dept.Region)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	o := model.Officer{DepartmentID: dept.ID, FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, tx.InsertOfficer(ctx, &o))
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, (&admin.Reset{Store: st, Allowed: true}).All(ctx))

	tx, err = st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	officers, err := tx.Officers(ctx, dept.ID)
	require.NoError(t, err)
	assert.Empty(t, officers)

	again, err := admin.AddDepartment(ctx, st, "Springfield PD", "IL")
	require.NoError(t, err)
	assert.Equal(t, dept.ID, again.ID)
}
