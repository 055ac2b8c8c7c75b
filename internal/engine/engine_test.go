package engine_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/engine"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

const (
	deptName   = "Springfield PD"
	deptRegion = "IL"
)

type fixture struct {
	t    *testing.T
	st   *store.Memory
	dept model.Department
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	return &fixture{t: t, st: st, dept: st.AddDepartment(deptName, deptRegion)}
}

func (f *fixture) run(opts engine.Options, tables engine.Tables) (*engine.Report, error) {
	f.t.Helper()
	if opts.PartitionName == "" {
		opts.PartitionName = deptName
	}
	if opts.PartitionRegion == "" {
		opts.PartitionRegion = deptRegion
	}
	e, err := engine.New(f.st, opts)
	require.NoError(f.t, err)
	return e.Run(context.Background(), tables)
}

func (f *fixture) mustRun(opts engine.Options, tables engine.Tables) *engine.Report {
	f.t.Helper()
	report, err := f.run(opts, tables)
	require.NoError(f.t, err)
	require.True(f.t, report.Committed)
	return report
}

func (f *fixture) read(fn func(ctx context.Context, tx store.Tx)) {
	f.t.Helper()
	ctx := context.Background()
	tx, err := f.st.Begin(ctx)
	require.NoError(f.t, err)
	defer tx.Rollback(ctx)
	fn(ctx, tx)
}

func (f *fixture) officers() []model.Officer {
	f.t.Helper()
	var out []model.Officer
	f.read(func(ctx context.Context, tx store.Tx) {
		var err error
		out, err = tx.Officers(ctx, f.dept.ID)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) assignments() []model.Assignment {
	f.t.Helper()
	var out []model.Assignment
	f.read(func(ctx context.Context, tx store.Tx) {
		var err error
		out, err = tx.Assignments(ctx, f.dept.ID)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) jobs() []model.Job {
	f.t.Helper()
	var out []model.Job
	f.read(func(ctx context.Context, tx store.Tx) {
		var err error
		out, err = tx.Jobs(ctx, f.dept.ID)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) incidents() []model.Incident {
	f.t.Helper()
	var out []model.Incident
	f.read(func(ctx context.Context, tx store.Tx) {
		var err error
		out, err = tx.Incidents(ctx, f.dept.ID)
		require.NoError(f.t, err)
	})
	return out
}

func table(t *testing.T, kind core.FileKind, lines ...string) *core.Table {
	t.Helper()
	data := []byte(strings.Join(lines, "\n") + "\n")
	tbl, err := core.ParseTable(data, string(kind)+".csv", core.MustGet(kind))
	require.NoError(t, err)
	return tbl
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func annLee(t *testing.T) *core.Table {
	return table(t, core.KindOfficers,
		"id,department_name,department_state,first_name,last_name",
		",Springfield PD,IL,Ann,Lee",
	)
}

func TestRun_CreatesOfficerWithoutAssignments(t *testing.T) {
	f := newFixture(t)

	report := f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	c := report.Counts(engine.EntityOfficers)
	assert.Equal(t, 1, c.Processed)
	assert.Equal(t, 1, c.Created)
	assert.Equal(t, deptName, report.Department.Name)

	officers := f.officers()
	require.Len(t, officers, 1)
	assert.Equal(t, "Ann", officers[0].FirstName)
	assert.Equal(t, "Lee", officers[0].LastName)
	assert.Empty(t, f.assignments())
}

func TestRun_AssignmentCreatesMissingRole(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})
	officerID := f.officers()[0].ID

	report := f.mustRun(engine.Options{}, engine.Tables{
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title",
			","+itoa(officerID)+",Officer",
		),
	})

	assert.Equal(t, 1, report.Counts(engine.EntityAssignments).Created)
	assert.Equal(t, 1, report.Counts(engine.EntityJobs).Created)

	jobs := f.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "Officer", jobs[0].Title)
	assert.EqualValues(t, 0, jobs[0].Order)

	assignments := f.assignments()
	require.Len(t, assignments, 1)
	assert.Equal(t, officerID, assignments[0].OfficerID)
	assert.Equal(t, jobs[0].ID, assignments[0].JobID)
}

func TestRun_RerunOfSameExtractChangesNothing(t *testing.T) {
	f := newFixture(t)
	tables := func() engine.Tables {
		return engine.Tables{
			core.KindOfficers: annLee(t),
			core.KindAssignments: table(t, core.KindAssignments,
				"id,officer_id,role_title,badge",
				",1,Officer,1234",
			),
		}
	}

	first := f.mustRun(engine.Options{}, tables())
	assert.Equal(t, 3, first.TotalCreated()) // officer, role, assignment

	second := f.mustRun(engine.Options{}, tables())
	assert.Zero(t, second.TotalCreated())
	assert.Zero(t, second.TotalUpdated())
	assert.Equal(t, 1, second.Counts(engine.EntityOfficers).Unchanged)
	assert.Equal(t, 1, second.Counts(engine.EntityAssignments).Skipped)

	assert.Len(t, f.officers(), 1)
	assert.Len(t, f.assignments(), 1)
}

func TestRun_RerunOfFullExtractWithTokensChangesNothing(t *testing.T) {
	f := newFixture(t)
	tables := func() engine.Tables {
		return engine.Tables{
			core.KindOfficers: table(t, core.KindOfficers,
				"id,partition_name,partition_region,first_name,last_name,gender",
				"#1,Springfield PD,IL,Ann,Lee,",
				"#2,Springfield PD,IL,,,Female",
			),
			core.KindAssignments: table(t, core.KindAssignments,
				"id,officer_id,role_title,badge",
				",#1,Officer,1234",
			),
			core.KindSalaries: table(t, core.KindSalaries,
				"id,officer_id,amount,year",
				",#1,65000,2023",
			),
			core.KindIncidents: table(t, core.KindIncidents,
				"id,partition_name,partition_region,report_number,officer_ids,plate_numbers",
				"#i1,Springfield PD,IL,R-100,#1|#2,",
				"#i2,Springfield PD,IL,,#1,ABC123_IL",
			),
			core.KindLinks: table(t, core.KindLinks,
				"id,url,title,officer_ids,incident_ids",
				",https://example.org/r-100,Report,#1,#i2",
			),
		}
	}

	first := f.mustRun(engine.Options{}, tables())
	assert.Equal(t, 2, first.Counts(engine.EntityOfficers).Created)
	assert.Equal(t, 2, first.Counts(engine.EntityIncidents).Created)

	second := f.mustRun(engine.Options{}, tables())
	assert.Zero(t, second.TotalCreated())
	assert.Zero(t, second.TotalUpdated())
	assert.Equal(t, 2, second.Counts(engine.EntityOfficers).Unchanged)
	assert.Equal(t, 2, second.Counts(engine.EntityIncidents).Unchanged)
	assert.Equal(t, 1, second.Counts(engine.EntityLinks).Unchanged)

	assert.Len(t, f.officers(), 2)
	assert.Len(t, f.incidents(), 2)
}

func TestRun_IncidentWithoutIdentityColumnsNeedsSameAssociations(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name",
		",,,Ann,Lee",
		",,,Bob,Ray",
	)})
	incident := func(officerIDs string) engine.Tables {
		return engine.Tables{core.KindIncidents: table(t, core.KindIncidents,
			"id,partition_name,partition_region,officer_ids",
			",,,"+officerIDs,
		)}
	}

	f.mustRun(engine.Options{}, incident("1"))
	report := f.mustRun(engine.Options{}, incident("1"))
	assert.Equal(t, 1, report.Counts(engine.EntityIncidents).Unchanged)

	report = f.mustRun(engine.Options{}, incident("2"))
	assert.Equal(t, 1, report.Counts(engine.EntityIncidents).Created)
	assert.Len(t, f.incidents(), 2)
}

func TestRun_RoleLookupIgnoresCase(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	report := f.mustRun(engine.Options{}, engine.Tables{
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title,start_date",
			",1,Sergeant,2020-01-01",
			",1,SERGEANT,2021-01-01",
			",1,Lieutenant,2022-01-01",
		),
	})

	assert.Equal(t, 2, report.Counts(engine.EntityJobs).Created)
	jobs := f.jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "Sergeant", jobs[0].Title)
	assert.EqualValues(t, 0, jobs[0].Order)
	assert.Equal(t, "Lieutenant", jobs[1].Title)
	assert.EqualValues(t, 1, jobs[1].Order)
}

func TestRun_StaticFieldConflictPolicy(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	birthYear := func(year string) engine.Tables {
		return engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
			"id,partition_name,partition_region,birth_year",
			"1,,,"+year,
		)}
	}

	report := f.mustRun(engine.Options{}, birthYear("1990"))
	assert.Equal(t, 1, report.Counts(engine.EntityOfficers).Updated)
	assert.Empty(t, report.Changes)

	report, err := f.run(engine.Options{}, birthYear("1991"))
	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "birth_year", conflict.Field)
	assert.Equal(t, "1990", conflict.Old)
	assert.Equal(t, "1991", conflict.New)
	assert.False(t, report.Committed)
	assert.EqualValues(t, 1990, f.officers()[0].BirthYear.Int32)

	report = f.mustRun(engine.Options{AllowStaticUpdates: true}, birthYear("1991"))
	require.Len(t, report.Changes, 1)
	assert.Equal(t, engine.StaticChange{OfficerID: 1, Field: "birth_year", Old: "1990", New: "1991"}, report.Changes[0])
	assert.EqualValues(t, 1991, f.officers()[0].BirthYear.Int32)
}

func TestRun_BlankIDWithContradictingStaticFieldCreatesOfficer(t *testing.T) {
	f := newFixture(t)
	annBorn := func(year string) engine.Tables {
		return engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
			"id,partition_name,partition_region,first_name,last_name,birth_year",
			",,,Ann,Lee,"+year,
		)}
	}
	f.mustRun(engine.Options{}, annBorn("1990"))

	report := f.mustRun(engine.Options{}, annBorn("1991"))
	assert.Equal(t, 1, report.Counts(engine.EntityOfficers).Created)
	assert.Empty(t, report.Changes)

	officers := f.officers()
	require.Len(t, officers, 2)
	assert.EqualValues(t, 1990, officers[0].BirthYear.Int32)
	assert.EqualValues(t, 1991, officers[1].BirthYear.Int32)

	_, err := f.run(engine.Options{Match: engine.MatchByName}, annBorn("1992"))
	var amb *core.AmbiguousMatchError
	assert.ErrorAs(t, err, &amb, "two Ann Lees make a name match ambiguous")
}

func TestRun_BlankStaticFieldKeepsValue(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name,race",
		",,,Ann,Lee,White",
	)})

	report := f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,race,gender",
		"1,,,,Female",
	)})

	assert.Equal(t, 1, report.Counts(engine.EntityOfficers).Updated)
	o := f.officers()[0]
	assert.Equal(t, "WHITE", o.Race.String)
	assert.Equal(t, "F", o.Gender.String)
}

func TestRun_TokensResolveInOrder(t *testing.T) {
	f := newFixture(t)

	f.mustRun(engine.Options{}, engine.Tables{
		core.KindOfficers: table(t, core.KindOfficers,
			"id,partition_name,partition_region,first_name,last_name",
			"#1,Springfield PD,IL,Ann,Lee",
			"#2,Springfield PD,IL,Bob,Ray",
		),
		core.KindIncidents: table(t, core.KindIncidents,
			"id,partition_name,partition_region,report_number,officer_ids",
			"#i1,Springfield PD,IL,R-100,#2|#1",
		),
		core.KindLinks: table(t, core.KindLinks,
			"id,url,title,officer_ids,incident_ids",
			",https://example.org/r-100,Report,#1,#i1",
		),
	})

	officers := f.officers()
	require.Len(t, officers, 2)
	incidents := f.incidents()
	require.Len(t, incidents, 1)
	assert.Equal(t, []int64{officers[1].ID, officers[0].ID}, incidents[0].OfficerIDs)

	f.read(func(ctx context.Context, tx store.Tx) {
		links, err := tx.Links(ctx, f.dept.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, []int64{officers[0].ID}, links[0].OfficerIDs)
		assert.Equal(t, []int64{incidents[0].ID}, links[0].IncidentIDs)
	})
}

func TestRun_TokenErrors(t *testing.T) {
	tests := []struct {
		name   string
		tables func(t *testing.T) engine.Tables
		entity string
	}{
		{
			name: "undefined token",
			tables: func(t *testing.T) engine.Tables {
				return engine.Tables{core.KindAssignments: table(t, core.KindAssignments,
					"id,officer_id,role_title",
					",#9,Officer",
				)}
			},
			entity: "officer token",
		},
		{
			name: "token defined twice",
			tables: func(t *testing.T) engine.Tables {
				return engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
					"id,partition_name,partition_region,first_name,last_name",
					"#1,,,Ann,Lee",
					"#1,,,Bob,Ray",
				)}
			},
			entity: "officer token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.run(engine.Options{}, tt.tables(t))

			var ref *core.ReferenceError
			require.ErrorAs(t, err, &ref)
			assert.Equal(t, tt.entity, ref.Entity)
			assert.Empty(t, f.officers())
		})
	}
}

func TestRun_SchemaErrorsReportedTogetherBeforeWrites(t *testing.T) {
	f := newFixture(t)

	report, err := f.run(engine.Options{}, engine.Tables{
		core.KindOfficers: table(t, core.KindOfficers,
			"id,first_name,last_name",
			",Ann,Lee",
		),
		core.KindLinks: table(t, core.KindLinks,
			"id,url,shoe_size",
			",https://example.org,42",
		),
	})
	require.Error(t, err)
	assert.False(t, report.Committed)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "expected joined errors, got %T", err)
	require.Len(t, joined.Unwrap(), 2)

	var kinds []core.FileKind
	for _, e := range joined.Unwrap() {
		var se *core.SchemaError
		require.ErrorAs(t, e, &se)
		kinds = append(kinds, se.Kind)
	}
	assert.ElementsMatch(t, []core.FileKind{core.KindOfficers, core.KindLinks}, kinds)
	assert.Empty(t, f.officers())
}

func TestRun_FailureRollsBackEarlierFiles(t *testing.T) {
	f := newFixture(t)

	report, err := f.run(engine.Options{}, engine.Tables{
		core.KindOfficers: annLee(t),
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title",
			",999,Officer",
		),
	})

	var rowErr *core.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "assignments.csv", rowErr.File)
	assert.Equal(t, 2, rowErr.Line)

	var ref *core.ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "officer", ref.Entity)

	assert.False(t, report.Committed)
	assert.Equal(t, 1, report.Counts(engine.EntityOfficers).Created)
	assert.Empty(t, f.officers())
	assert.Empty(t, f.jobs())
}

func TestRun_PartitionColumns(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr bool
	}{
		{"exact", ",Springfield PD,IL,Ann,Lee", false},
		{"region by name", ",Springfield PD,Illinois,Ann,Lee", false},
		{"blank", ",,,Ann,Lee", false},
		{"other department", ",Shelbyville PD,IL,Ann,Lee", true},
		{"other region", ",Springfield PD,MO,Ann,Lee", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.run(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
				"id,partition_name,partition_region,first_name,last_name",
				tt.row,
			)})

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var ref *core.ReferenceError
			require.ErrorAs(t, err, &ref)
			assert.Equal(t, "partition", ref.Entity)
		})
	}
}

func TestRun_UnknownPartition(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(engine.Options{PartitionName: "Capital City PD"}, engine.Tables{core.KindOfficers: annLee(t)})

	var ref *core.ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "partition", ref.Entity)
	assert.Equal(t, "does not exist", ref.Reason)
}

func TestRun_PartitionRegionIsNormalized(t *testing.T) {
	f := newFixture(t)
	report := f.mustRun(engine.Options{PartitionRegion: "illinois"}, engine.Tables{core.KindOfficers: annLee(t)})
	assert.Equal(t, f.dept.ID, report.Department.ID)
}

func TestRun_OverwriteAssignments(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{
		core.KindOfficers: table(t, core.KindOfficers,
			"id,partition_name,partition_region,first_name,last_name",
			"#a,,,Ann,Lee",
			"#b,,,Bob,Ray",
		),
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title,start_date",
			",#a,Officer,2015-01-01",
			",#a,Sergeant,2018-01-01",
			",#b,Officer,2016-01-01",
		),
	})
	require.Len(t, f.assignments(), 3)

	report := f.mustRun(engine.Options{Assignments: engine.AssignmentOverwrite}, engine.Tables{
		core.KindAssignments: table(t, core.KindAssignments,
			"officer_id,role_title,start_date,unit_name",
			"1,Lieutenant,2021-06-01,Patrol",
		),
	})

	c := report.Counts(engine.EntityAssignments)
	assert.Equal(t, 2, c.Deleted)
	assert.Equal(t, 1, c.Created)
	assert.Equal(t, 1, report.Counts(engine.EntityUnits).Created)

	var ann, bob []model.Assignment
	for _, a := range f.assignments() {
		switch a.OfficerID {
		case 1:
			ann = append(ann, a)
		case 2:
			bob = append(bob, a)
		}
	}
	require.Len(t, ann, 1)
	assert.True(t, ann[0].UnitID.Valid)
	assert.Equal(t, "2021-06-01", core.FormatDate(ann[0].StartDate))
	assert.Len(t, bob, 1, "officers missing from the file keep their assignments")
}

func TestRun_OverwriteAssignmentsRejectsUnknownOfficers(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{
		core.KindOfficers: annLee(t),
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title",
			",1,Officer",
		),
	})

	_, err := f.run(engine.Options{Assignments: engine.AssignmentOverwrite}, engine.Tables{
		core.KindAssignments: table(t, core.KindAssignments,
			"officer_id,role_title",
			"1,Sergeant",
			"77,Sergeant",
		),
	})

	var ref *core.ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Len(t, f.assignments(), 1)
}

func TestRun_AddressesAndPlatesAreSharedByNaturalKey(t *testing.T) {
	f := newFixture(t)

	report := f.mustRun(engine.Options{}, engine.Tables{
		core.KindIncidents: table(t, core.KindIncidents,
			"id,partition_name,partition_region,report_number,street_name,city,state,plate_numbers",
			",,,R-1,Main St,Springfield,IL,ABC123_IL",
			",,,R-2,Main St,Springfield,Illinois,ABC123_IL|XYZ9_MO",
			",,,R-3,,,,",
		),
	})

	assert.Equal(t, 3, report.Counts(engine.EntityIncidents).Created)
	assert.Equal(t, 1, report.Counts(engine.EntityAddresses).Created)
	assert.Equal(t, 2, report.Counts(engine.EntityPlates).Created)

	incidents := f.incidents()
	require.Len(t, incidents, 3)
	assert.Equal(t, incidents[0].AddressID, incidents[1].AddressID)
	assert.False(t, incidents[2].AddressID.Valid)
	assert.Equal(t, incidents[0].PlateIDs[0], incidents[1].PlateIDs[0])
	assert.Len(t, incidents[1].PlateIDs, 2)
}

func TestRun_IncidentsMatchByReportNumber(t *testing.T) {
	f := newFixture(t)
	incidents := func(description string) engine.Tables {
		return engine.Tables{core.KindIncidents: table(t, core.KindIncidents,
			"id,partition_name,partition_region,report_number,description",
			",,,R-1,"+description,
		)}
	}

	f.mustRun(engine.Options{}, incidents("Traffic stop"))
	report := f.mustRun(engine.Options{}, incidents("Traffic stop"))
	assert.Equal(t, 1, report.Counts(engine.EntityIncidents).Unchanged)

	report = f.mustRun(engine.Options{}, incidents("Traffic stop; citation issued"))
	assert.Equal(t, 1, report.Counts(engine.EntityIncidents).Updated)

	got := f.incidents()
	require.Len(t, got, 1)
	assert.Equal(t, "Traffic stop; citation issued", got[0].Description.String)
}

func TestRun_AmbiguousNameMatch(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name,unique_identifier",
		",,,Ann,Lee,A-1",
		",,,Ann,Lee,A-2",
	)})
	require.Len(t, f.officers(), 2)

	_, err := f.run(engine.Options{Match: engine.MatchByName}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name,gender",
		",,,Ann,Lee,Female",
	)})

	var amb *core.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []int64{1, 2}, amb.Candidates)
}

func TestRun_MatchByBadge(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{
		core.KindOfficers: table(t, core.KindOfficers,
			"id,partition_name,partition_region,first_name,last_name,unique_identifier",
			"#1,,,Ann,Lee,A-1",
			"#2,,,Ann,Lee,A-2",
		),
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title,badge",
			",#1,Officer,b-123",
			",#2,Officer,b-456",
		),
	})

	report := f.mustRun(engine.Options{Match: engine.MatchByBadge}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name,gender,badge_number",
		",,,Ann,Lee,Female,B-456",
	)})

	assert.Equal(t, 1, report.Counts(engine.EntityOfficers).Updated)
	officers := f.officers()
	assert.False(t, officers[0].Gender.Valid)
	assert.Equal(t, "F", officers[1].Gender.String)
}

func TestRun_NoCreateRejectsUnmatchedOfficer(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(engine.Options{NoCreate: true}, engine.Tables{core.KindOfficers: annLee(t)})

	var ref *core.ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "Ann Lee", ref.Value)
	assert.Empty(t, f.officers())
}

func TestRun_SalariesSkipDuplicates(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	report := f.mustRun(engine.Options{}, engine.Tables{core.KindSalaries: table(t, core.KindSalaries,
		"id,officer_id,salary,overtime_pay,year,is_fiscal_year",
		",1,65000.00,1200.50,2023,false",
		",1,65000.00,1200.50,2023,false",
		",1,67000.00,,2024,true",
	)})

	c := report.Counts(engine.EntitySalaries)
	assert.Equal(t, 3, c.Processed)
	assert.Equal(t, 2, c.Created)
	assert.Equal(t, 1, c.Skipped)
}

func TestRun_LinksAreReusedOnRerun(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	links := func() engine.Tables {
		return engine.Tables{core.KindLinks: table(t, core.KindLinks,
			"id,url,title,link_type,officer_ids",
			",https://example.org/news/1,Profile,YouTube Video,1",
			",https://example.org/unattached,Loose,,",
		)}
	}

	first := f.mustRun(engine.Options{}, links())
	assert.Equal(t, 2, first.Counts(engine.EntityLinks).Created)

	second := f.mustRun(engine.Options{}, links())
	assert.Zero(t, second.Counts(engine.EntityLinks).Created)
	assert.Equal(t, 2, second.Counts(engine.EntityLinks).Unchanged)
}

func TestRun_ForceCreateReplacesRowsAndResyncsSequences(t *testing.T) {
	f := newFixture(t)
	f.mustRun(engine.Options{}, engine.Tables{
		core.KindOfficers: annLee(t),
		core.KindAssignments: table(t, core.KindAssignments,
			"id,officer_id,role_title",
			",1,Officer",
		),
	})

	report := f.mustRun(engine.Options{Create: engine.ForceRecreate, ForceCreateAllowed: true}, engine.Tables{
		core.KindOfficers: table(t, core.KindOfficers,
			"id,first_name,last_name",
			"1,Ann,Lee-Smith",
			"5,Bob,Ray",
		),
	})

	c := report.Counts(engine.EntityOfficers)
	assert.Equal(t, 1, c.Deleted)
	assert.Equal(t, 2, c.Created)
	assert.Empty(t, f.assignments(), "deleting an officer removes its assignments")

	officers := f.officers()
	require.Len(t, officers, 2)
	assert.EqualValues(t, 1, officers[0].ID)
	assert.Equal(t, "Lee-Smith", officers[0].LastName)
	assert.EqualValues(t, 5, officers[1].ID)

	f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: table(t, core.KindOfficers,
		"id,partition_name,partition_region,first_name,last_name",
		",,,Cy,Dunn",
	)})
	officers = f.officers()
	require.Len(t, officers, 3)
	assert.EqualValues(t, 6, officers[2].ID)
}

func TestNew_RejectsForceCreateUnlessAllowed(t *testing.T) {
	_, err := engine.New(store.NewMemory(), engine.Options{
		PartitionName:   deptName,
		PartitionRegion: deptRegion,
		Create:          engine.ForceRecreate,
	})
	assert.ErrorIs(t, err, core.ErrForceCreateRefused)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	e, err := engine.New(f.st, engine.Options{PartitionName: deptName, PartitionRegion: deptRegion})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.Run(ctx, engine.Tables{core.KindOfficers: annLee(t)})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, report.Committed)
	assert.Empty(t, f.officers())
}

func TestReport_Summary(t *testing.T) {
	f := newFixture(t)
	report := f.mustRun(engine.Options{}, engine.Tables{core.KindOfficers: annLee(t)})

	summary := report.Summary()
	assert.Contains(t, summary, "officers")
	assert.Contains(t, summary, "created=1")
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Finished.Before(report.Started))
}
