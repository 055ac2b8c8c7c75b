package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/logging"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

// run holds the state of one import: the open transaction, the partition's
// rows as of run start plus the run's own writes, and the resolvers.
type run struct {
	tx     store.Tx
	opts   Options
	plan   planner
	dept   model.Department
	report *Report

	file string // file being processed, for report entries

	officers    map[int64]model.Officer
	officerRefs *Resolver

	assignments    map[int64]model.Assignment
	assignmentRefs *Resolver

	salaries   map[int64]model.Salary
	salaryRefs *Resolver

	incidents    map[int64]model.Incident
	incidentRefs *Resolver

	links    map[int64]model.Link
	linkRefs *Resolver

	jobs     map[string]model.Job // by folded title
	jobCount int
	units    map[string]model.Unit // by folded name
	unitByID map[int64]model.Unit

	// claimed holds ids already matched or created by a row of this run,
	// per entity. A claimed row is not reused by a later equivalence match.
	claimed map[string]map[int64]bool
}

func newRun(ctx context.Context, tx store.Tx, opts Options, dept model.Department, report *Report) (*run, error) {
	r := &run{
		tx:          tx,
		opts:        opts,
		plan:        plannerFor(opts.Create),
		dept:        dept,
		report:      report,
		officers:    make(map[int64]model.Officer),
		assignments: make(map[int64]model.Assignment),
		incidents:   make(map[int64]model.Incident),
		claimed:     make(map[string]map[int64]bool),
	}

	officers, err := tx.Officers(ctx, dept.ID)
	if err != nil {
		return nil, fmt.Errorf("load officers: %w", err)
	}
	ids := make([]int64, 0, len(officers))
	for _, o := range officers {
		r.officers[o.ID] = o
		ids = append(ids, o.ID)
	}
	r.officerRefs = NewResolver("officer", ids)

	assignments, err := tx.Assignments(ctx, dept.ID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	for _, a := range assignments {
		r.assignments[a.ID] = a
	}

	incidents, err := tx.Incidents(ctx, dept.ID)
	if err != nil {
		return nil, fmt.Errorf("load incidents: %w", err)
	}
	ids = make([]int64, 0, len(incidents))
	for _, i := range incidents {
		r.incidents[i.ID] = i
		ids = append(ids, i.ID)
	}
	r.incidentRefs = NewResolver("incident", ids)

	return r, nil
}

// eachRow runs fn over the table's rows in input order, stopping at the first
// error and logging progress.
func (r *run) eachRow(ctx context.Context, t *core.Table, entity string, fn func(core.Row) error) error {
	r.file = t.Name
	logger := logging.WithFields(ctx, "kind", t.Kind, "file", t.Name)
	logger.Info("processing file", "rows", len(t.Rows))

	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.report.processed(entity)
		if err := fn(row); err != nil {
			return core.AtRow(t.Name, row.Line, err)
		}
		if r.opts.ProgressEvery > 0 && (i+1)%r.opts.ProgressEvery == 0 {
			logger.Info("progress", "rows", i+1)
		}
	}

	c := r.report.Counts(entity)
	logger.Info("file done",
		"created", c.Created,
		"updated", c.Updated,
		"unchanged", c.Unchanged,
		"deleted", c.Deleted,
		"skipped", c.Skipped,
	)
	return nil
}

func (r *run) claim(entity string, id int64) {
	m, ok := r.claimed[entity]
	if !ok {
		m = make(map[int64]bool)
		r.claimed[entity] = m
	}
	m[id] = true
}

func (r *run) isClaimed(entity string, id int64) bool {
	return r.claimed[entity][id]
}

// bind registers the row's token, if any, or records a plain id.
func bind(res *Resolver, ref Ref, id int64) error {
	if token, ok := ref.Token(); ok {
		return res.Register(token, id)
	}
	res.Add(id)
	return nil
}

// checkToken rejects a token that an earlier row already defined.
func checkToken(res *Resolver, ref Ref) error {
	if token, ok := ref.Token(); ok && res.Defined(token) {
		return &core.ReferenceError{Entity: res.entity + " token", Value: token, Reason: "is defined twice"}
	}
	return nil
}

// checkPartition verifies the row's partition columns, when filled, name the
// partition being imported.
func (r *run) checkPartition(row core.Row) error {
	name := row.Get(core.ColPartitionName)
	region := row.Get(core.ColPartitionRegion)
	if name == "" && region == "" {
		return nil
	}

	nameOK := name == "" || name == r.dept.Name
	regionOK := region == ""
	if !regionOK {
		code, _ := core.NormalizeState(region)
		wanted, _ := core.NormalizeState(r.dept.Region)
		regionOK = strings.EqualFold(code, wanted)
	}
	if nameOK && regionOK {
		return nil
	}
	return &core.ReferenceError{
		Entity: "partition",
		Value:  name + " / " + region,
		Reason: fmt.Sprintf("does not match the partition being imported (%s / %s)", r.dept.Name, r.dept.Region),
	}
}

// resolveOfficer resolves the officer_id column, falling back to
// officer_external_id when the id is blank.
func (r *run) resolveOfficer(row core.Row) (int64, error) {
	ref, err := ParseRef(core.ColOfficerID, row.Get(core.ColOfficerID))
	if err != nil {
		return 0, err
	}
	if !ref.IsNone() {
		return r.officerRefs.Resolve(ref)
	}

	external := row.Get("officer_external_id")
	if external == "" {
		return 0, &core.ReferenceError{Entity: "officer", Value: "", Reason: "is required (officer_id or officer_external_id)"}
	}

	var matches []int64
	for _, o := range r.sortedOfficers() {
		if o.UniqueIdentifier.Valid && o.UniqueIdentifier.String == external {
			matches = append(matches, o.ID)
		}
	}
	switch len(matches) {
	case 0:
		return 0, &core.ReferenceError{Entity: "officer with unique identifier", Value: external}
	case 1:
		return matches[0], nil
	default:
		return 0, &core.AmbiguousMatchError{FirstName: "unique identifier", LastName: external, Candidates: matches}
	}
}
