package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

// officerRow is one parsed officer line. Only columns the file carries are
// applied to an existing officer.
type officerRow struct {
	ref   Ref
	row   core.Row
	value model.Officer
	badge string
}

func (r *run) parseOfficer(ctx context.Context, row core.Row) (officerRow, error) {
	in := officerRow{row: row, badge: row.Get("badge_number")}

	if err := r.checkPartition(row); err != nil {
		return in, err
	}

	ref, err := ParseRef(core.ColID, row.Get(core.ColID))
	if err != nil {
		return in, err
	}
	in.ref = ref

	o := model.Officer{
		DepartmentID:     r.dept.ID,
		FirstName:        row.Get("first_name"),
		LastName:         row.Get("last_name"),
		MiddleInitial:    row.Get("middle_initial"),
		Suffix:           core.ParseChoice(ctx, "suffix", row.Get("suffix"), core.SuffixChoices),
		Race:             core.ParseChoice(ctx, "race", row.Get("race"), core.RaceChoices),
		Gender:           core.ParseChoice(ctx, "gender", row.Get("gender"), core.GenderChoices),
		UniqueIdentifier: core.ToPgText(row.Get("unique_identifier")),
	}
	if o.EmploymentDate, err = core.ParseDate("employment_date", row.Get("employment_date")); err != nil {
		return in, err
	}
	if o.BirthYear, err = core.ParseInt("birth_year", row.Get("birth_year")); err != nil {
		return in, err
	}
	in.value = o
	return in, nil
}

func (r *run) officersPass(ctx context.Context, t *core.Table) error {
	return r.eachRow(ctx, t, EntityOfficers, func(row core.Row) error {
		in, err := r.parseOfficer(ctx, row)
		if err != nil {
			return err
		}
		if err := checkToken(r.officerRefs, in.ref); err != nil {
			return err
		}

		switch r.plan.plan(in.ref) {
		case actUpdate:
			id, _ := in.ref.ID()
			existing, ok := r.officers[id]
			if !ok {
				return &core.ReferenceError{Entity: "officer", Value: in.ref.String(), Reason: "does not exist in this partition"}
			}
			return r.updateOfficer(ctx, existing, in)
		case actReplace:
			id, _ := in.ref.ID()
			return r.replaceOfficer(ctx, id, in)
		default:
			return r.createOfficer(ctx, in)
		}
	})
}

// createOfficer handles a row without a numeric id: match an existing officer
// with the configured strategy, otherwise insert.
func (r *run) createOfficer(ctx context.Context, in officerRow) error {
	match, found, err := r.matchOfficer(in)
	if err != nil {
		return err
	}

	if found {
		r.claim(EntityOfficers, match.ID)
		if err := bind(r.officerRefs, in.ref, match.ID); err != nil {
			return err
		}
		return r.updateOfficer(ctx, match, in)
	}

	if r.opts.NoCreate {
		return &core.ReferenceError{
			Entity: "officer",
			Value:  strings.TrimSpace(in.value.FirstName + " " + in.value.LastName),
			Reason: "matches no existing officer and creation is disabled",
		}
	}
	return r.insertOfficer(ctx, in, 0)
}

func (r *run) insertOfficer(ctx context.Context, in officerRow, id int64) error {
	o := in.value
	o.ID = id
	if err := r.tx.InsertOfficer(ctx, &o); err != nil {
		return fmt.Errorf("insert officer: %w", err)
	}
	r.officers[o.ID] = o
	r.claim(EntityOfficers, o.ID)
	if err := bind(r.officerRefs, in.ref, o.ID); err != nil {
		return err
	}
	r.report.created(EntityOfficers, o.ID, r.file, in.row.Line)
	return nil
}

func (r *run) replaceOfficer(ctx context.Context, id int64, in officerRow) error {
	if _, err := r.tx.Officer(ctx, id); err == nil {
		if err := r.tx.DeleteOfficer(ctx, id); err != nil {
			return fmt.Errorf("delete officer %d: %w", id, err)
		}
		r.forgetOfficer(id)
		r.report.deleted(EntityOfficers, id, r.file, in.row.Line)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load officer %d: %w", id, err)
	}
	return r.insertOfficer(ctx, in, id)
}

// forgetOfficer drops a deleted officer and the rows its deletion removed.
func (r *run) forgetOfficer(id int64) {
	delete(r.officers, id)
	for aid, a := range r.assignments {
		if a.OfficerID == id {
			delete(r.assignments, aid)
		}
	}
	for sid, s := range r.salaries {
		if s.OfficerID == id {
			delete(r.salaries, sid)
		}
	}
	for iid, inc := range r.incidents {
		inc.OfficerIDs = without(inc.OfficerIDs, id)
		r.incidents[iid] = inc
	}
	for lid, l := range r.links {
		l.OfficerIDs = without(l.OfficerIDs, id)
		r.links[lid] = l
	}
}

// updateOfficer applies the row's present columns to an existing officer.
// Static fields follow the conflict policy.
func (r *run) updateOfficer(ctx context.Context, existing model.Officer, in officerRow) error {
	o := existing
	row := in.row
	v := in.value

	if row.Has("first_name") {
		o.FirstName = v.FirstName
	}
	if row.Has("last_name") {
		o.LastName = v.LastName
	}
	if row.Has("middle_initial") {
		o.MiddleInitial = v.MiddleInitial
	}
	if row.Has("suffix") {
		o.Suffix = v.Suffix
	}
	if row.Has("gender") {
		o.Gender = v.Gender
	}

	statics := []struct {
		field    string
		cur, in  string
		curValid bool
		inValid  bool
		set      func()
	}{
		{"unique_identifier", o.UniqueIdentifier.String, v.UniqueIdentifier.String, o.UniqueIdentifier.Valid, v.UniqueIdentifier.Valid,
			func() { o.UniqueIdentifier = v.UniqueIdentifier }},
		{"race", o.Race.String, v.Race.String, o.Race.Valid, v.Race.Valid,
			func() { o.Race = v.Race }},
		{"employment_date", core.FormatDate(o.EmploymentDate), core.FormatDate(v.EmploymentDate), o.EmploymentDate.Valid, v.EmploymentDate.Valid,
			func() { o.EmploymentDate = v.EmploymentDate }},
		{"birth_year", core.FormatValue(o.BirthYear), core.FormatValue(v.BirthYear), o.BirthYear.Valid, v.BirthYear.Valid,
			func() { o.BirthYear = v.BirthYear }},
	}
	for _, f := range statics {
		if !row.Has(f.field) || !f.inValid {
			continue
		}
		if !f.curValid {
			f.set()
			continue
		}
		if f.cur == f.in {
			continue
		}
		if !r.opts.AllowStaticUpdates {
			return &core.ConflictError{OfficerID: o.ID, Field: f.field, Old: f.cur, New: f.in}
		}
		f.set()
		r.report.staticChange(StaticChange{OfficerID: o.ID, Field: f.field, Old: f.cur, New: f.in})
	}

	r.claim(EntityOfficers, o.ID)
	if officerEqual(existing, o) {
		r.report.unchanged(EntityOfficers)
		return nil
	}
	if err := r.tx.UpdateOfficer(ctx, o); err != nil {
		return fmt.Errorf("update officer %d: %w", o.ID, err)
	}
	r.officers[o.ID] = o
	r.report.updated(EntityOfficers, o.ID, r.file, row.Line)
	return nil
}

// matchOfficer finds the existing officer a row without a numeric id refers
// to, per the configured strategy.
func (r *run) matchOfficer(in officerRow) (model.Officer, bool, error) {
	switch r.opts.Match {
	case MatchByName:
		return r.matchByName(in, r.officersNamed(in.value))
	case MatchByBadge:
		candidates := r.officersNamed(in.value)
		if in.badge == "" {
			return r.matchByName(in, candidates)
		}
		var withBadge []model.Officer
		for _, o := range candidates {
			if r.officerHasBadge(o.ID, in.badge) {
				withBadge = append(withBadge, o)
			}
		}
		switch len(withBadge) {
		case 0:
			return model.Officer{}, false, nil
		case 1:
			return withBadge[0], true, nil
		default:
			return model.Officer{}, false, ambiguous(in, withBadge)
		}
	default:
		if r.opts.Create == ForceRecreate {
			return model.Officer{}, false, nil
		}
		o, ok := r.equivalentOfficer(in.value)
		return o, ok, nil
	}
}

func (r *run) matchByName(in officerRow, candidates []model.Officer) (model.Officer, bool, error) {
	switch len(candidates) {
	case 0:
		return model.Officer{}, false, nil
	case 1:
		return candidates[0], true, nil
	default:
		return model.Officer{}, false, ambiguous(in, candidates)
	}
}

func ambiguous(in officerRow, candidates []model.Officer) error {
	ids := make([]int64, len(candidates))
	for i, o := range candidates {
		ids[i] = o.ID
	}
	return &core.AmbiguousMatchError{
		FirstName:  in.value.FirstName,
		LastName:   in.value.LastName,
		Badge:      in.badge,
		Candidates: ids,
	}
}

// officersNamed returns the partition's officers with exactly the given first
// and last name.
func (r *run) officersNamed(v model.Officer) []model.Officer {
	var out []model.Officer
	for _, o := range r.sortedOfficers() {
		if o.FirstName == v.FirstName && o.LastName == v.LastName {
			out = append(out, o)
		}
	}
	return out
}

func (r *run) officerHasBadge(officerID int64, badge string) bool {
	for _, a := range r.assignments {
		if a.OfficerID == officerID && a.Badge.Valid && strings.EqualFold(a.Badge.String, badge) {
			return true
		}
	}
	return false
}

// equivalentOfficer finds an unclaimed officer the row describes. A unique
// identifier decides alone. Without one the names must match and no field
// filled on both sides may differ; a row without names must equal the officer
// outright. The lowest id wins.
func (r *run) equivalentOfficer(v model.Officer) (model.Officer, bool) {
	for _, o := range r.sortedOfficers() {
		if r.isClaimed(EntityOfficers, o.ID) {
			continue
		}
		if v.UniqueIdentifier.Valid {
			if o.UniqueIdentifier.Valid && o.UniqueIdentifier.String == v.UniqueIdentifier.String {
				return o, true
			}
			continue
		}
		if v.FirstName == "" && v.LastName == "" {
			if officerEqual(o, v) {
				return o, true
			}
			continue
		}
		if o.FirstName != v.FirstName || o.LastName != v.LastName {
			continue
		}
		if v.MiddleInitial != "" && o.MiddleInitial != "" && v.MiddleInitial != o.MiddleInitial {
			continue
		}
		if compatible(o.Suffix, v.Suffix) &&
			compatible(o.Race, v.Race) &&
			compatible(o.Gender, v.Gender) &&
			compatible(o.UniqueIdentifier, v.UniqueIdentifier) &&
			(!o.EmploymentDate.Valid || !v.EmploymentDate.Valid || model.DateEqual(o.EmploymentDate, v.EmploymentDate)) &&
			(!o.BirthYear.Valid || !v.BirthYear.Valid || o.BirthYear.Int32 == v.BirthYear.Int32) {
			return o, true
		}
	}
	return model.Officer{}, false
}

// compatible reports whether two optional values do not contradict each other.
func compatible(a, b pgtype.Text) bool {
	return !a.Valid || !b.Valid || a.String == b.String
}

func (r *run) sortedOfficers() []model.Officer {
	out := make([]model.Officer, 0, len(r.officers))
	for _, o := range r.officers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func officerEqual(a, b model.Officer) bool {
	return a.FirstName == b.FirstName &&
		a.LastName == b.LastName &&
		a.MiddleInitial == b.MiddleInitial &&
		model.TextEqual(a.Suffix, b.Suffix) &&
		model.TextEqual(a.Race, b.Race) &&
		model.TextEqual(a.Gender, b.Gender) &&
		model.DateEqual(a.EmploymentDate, b.EmploymentDate) &&
		model.Int4Equal(a.BirthYear, b.BirthYear) &&
		model.TextEqual(a.UniqueIdentifier, b.UniqueIdentifier)
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
