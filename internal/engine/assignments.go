package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

func (r *run) parseAssignment(ctx context.Context, row core.Row) (model.Assignment, error) {
	var a model.Assignment

	officerID, err := r.resolveOfficer(row)
	if err != nil {
		return a, err
	}
	a.OfficerID = officerID

	title := row.Get("role_title")
	if title == "" {
		return a, &core.FieldError{Field: "role_title", Message: "is required"}
	}
	job, err := r.job(ctx, title, row.Line)
	if err != nil {
		return a, err
	}
	a.JobID = job.ID

	if a.UnitID, err = r.unitFor(ctx, row); err != nil {
		return a, err
	}
	a.Badge = core.ToPgText(row.Get("badge"))
	if a.StartDate, err = core.ParseDate("start_date", row.Get("start_date")); err != nil {
		return a, err
	}
	if a.EndDate, err = core.ParseDate("end_date", row.Get("end_date")); err != nil {
		return a, err
	}
	return a, nil
}

func (r *run) assignmentsPass(ctx context.Context, t *core.Table) error {
	if err := r.loadLookups(ctx); err != nil {
		return err
	}
	ids := make([]int64, 0, len(r.assignments))
	for id := range r.assignments {
		ids = append(ids, id)
	}
	r.assignmentRefs = NewResolver("assignment", ids)

	if r.opts.Assignments == AssignmentOverwrite {
		return r.overwriteAssignments(ctx, t)
	}

	return r.eachRow(ctx, t, EntityAssignments, func(row core.Row) error {
		ref, err := ParseRef(core.ColID, row.Get(core.ColID))
		if err != nil {
			return err
		}
		if err := checkToken(r.assignmentRefs, ref); err != nil {
			return err
		}
		a, err := r.parseAssignment(ctx, row)
		if err != nil {
			return err
		}

		switch r.plan.plan(ref) {
		case actUpdate:
			id, _ := ref.ID()
			existing, ok := r.assignments[id]
			if !ok {
				return &core.ReferenceError{Entity: "assignment", Value: ref.String(), Reason: "does not exist in this partition"}
			}
			return r.updateAssignment(ctx, existing, a, row)
		case actReplace:
			id, _ := ref.ID()
			if err := r.deleteAssignment(ctx, id, row.Line); err != nil {
				return err
			}
			a.ID = id
			return r.insertAssignment(ctx, ref, a, row.Line)
		default:
			if dup, ok := r.duplicateAssignment(a); ok {
				r.report.skipped(EntityAssignments)
				return bind(r.assignmentRefs, ref, dup.ID)
			}
			return r.insertAssignment(ctx, ref, a, row.Line)
		}
	})
}

// duplicateAssignment finds an assignment of the same officer with the same
// badge, unit, role and dates.
func (r *run) duplicateAssignment(a model.Assignment) (model.Assignment, bool) {
	key := a.Key()
	var best model.Assignment
	found := false
	for _, e := range r.assignments {
		if e.OfficerID != a.OfficerID || !e.Key().Equal(key) {
			continue
		}
		if !found || e.ID < best.ID {
			best, found = e, true
		}
	}
	return best, found
}

func (r *run) insertAssignment(ctx context.Context, ref Ref, a model.Assignment, line int) error {
	if err := r.tx.InsertAssignment(ctx, &a); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	r.assignments[a.ID] = a
	if err := bind(r.assignmentRefs, ref, a.ID); err != nil {
		return err
	}
	r.report.created(EntityAssignments, a.ID, r.file, line)
	return nil
}

func (r *run) updateAssignment(ctx context.Context, existing, in model.Assignment, row core.Row) error {
	a := existing
	a.OfficerID = in.OfficerID
	a.JobID = in.JobID
	if row.Has("unit_id") || row.Has("unit_name") {
		a.UnitID = in.UnitID
	}
	if row.Has("badge") {
		a.Badge = in.Badge
	}
	if row.Has("start_date") {
		a.StartDate = in.StartDate
	}
	if row.Has("end_date") {
		a.EndDate = in.EndDate
	}

	if a.OfficerID == existing.OfficerID && a.Key().Equal(existing.Key()) {
		r.report.unchanged(EntityAssignments)
		return nil
	}
	if err := r.tx.UpdateAssignment(ctx, a); err != nil {
		return fmt.Errorf("update assignment %d: %w", a.ID, err)
	}
	r.assignments[a.ID] = a
	r.report.updated(EntityAssignments, a.ID, r.file, row.Line)
	return nil
}

func (r *run) deleteAssignment(ctx context.Context, id int64, line int) error {
	if _, err := r.tx.Assignment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load assignment %d: %w", id, err)
	}
	if err := r.tx.DeleteAssignment(ctx, id); err != nil {
		return fmt.Errorf("delete assignment %d: %w", id, err)
	}
	delete(r.assignments, id)
	r.report.deleted(EntityAssignments, id, r.file, line)
	return nil
}

// overwriteAssignments makes the file the complete assignment history of every
// officer it names: their existing assignments are deleted and every row is
// inserted. The id column is ignored.
func (r *run) overwriteAssignments(ctx context.Context, t *core.Table) error {
	type pending struct {
		a    model.Assignment
		line int
	}
	var rows []pending
	seen := make(map[int64]bool)
	var officers []int64

	err := r.eachRow(ctx, t, EntityAssignments, func(row core.Row) error {
		a, err := r.parseAssignment(ctx, row)
		if err != nil {
			return err
		}
		if !seen[a.OfficerID] {
			seen[a.OfficerID] = true
			officers = append(officers, a.OfficerID)
		}
		rows = append(rows, pending{a: a, line: row.Line})
		return nil
	})
	if err != nil {
		return err
	}

	var unknown []string
	for _, id := range officers {
		if _, ok := r.officers[id]; !ok {
			unknown = append(unknown, strconv.FormatInt(id, 10))
		}
	}
	if len(unknown) > 0 {
		return &core.ReferenceError{
			Entity: "officer",
			Value:  strings.Join(unknown, ", "),
			Reason: "does not exist in this partition; no assignments were replaced",
		}
	}

	sort.Slice(officers, func(i, j int) bool { return officers[i] < officers[j] })
	n, err := r.tx.DeleteAssignmentsForOfficers(ctx, officers)
	if err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	r.report.deletedMany(EntityAssignments, n)
	for id, a := range r.assignments {
		if seen[a.OfficerID] {
			delete(r.assignments, id)
		}
	}

	for _, p := range rows {
		if err := r.insertAssignment(ctx, Ref{}, p.a, p.line); err != nil {
			return core.AtRow(t.Name, p.line, err)
		}
	}
	return nil
}
