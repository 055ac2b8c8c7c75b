package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

var addressColumns = []string{"street_name", "cross_street1", "cross_street2", "city", "state", "zip_code"}

func hasAddress(row core.Row) bool {
	for _, c := range addressColumns {
		if row.Has(c) {
			return true
		}
	}
	return false
}

func (r *run) parseIncident(ctx context.Context, row core.Row) (model.Incident, error) {
	inc := model.Incident{DepartmentID: r.dept.ID}
	var err error

	if err := r.checkPartition(row); err != nil {
		return inc, err
	}
	if inc.Date, err = core.ParseDate("date", row.Get("date")); err != nil {
		return inc, err
	}
	if inc.Time, err = core.ParseTime("time", row.Get("time")); err != nil {
		return inc, err
	}
	inc.ReportNumber = core.ToPgText(row.Get("report_number"))
	inc.Description = core.ToPgText(row.Get("description"))

	key := model.AddressKey{
		StreetName:   core.ToPgText(row.Get("street_name")),
		CrossStreet1: core.ToPgText(row.Get("cross_street1")),
		CrossStreet2: core.ToPgText(row.Get("cross_street2")),
		City:         core.ToPgText(row.Get("city")),
		ZipCode:      core.ToPgText(row.Get("zip_code")),
	}
	if key.State, err = core.ParseState("state", row.Get("state")); err != nil {
		return inc, err
	}
	if inc.AddressID, err = r.address(ctx, key, row.Line); err != nil {
		return inc, err
	}

	if inc.OfficerIDs, err = r.officerRefs.ResolveList(core.ColOfficerIDs, row.Get(core.ColOfficerIDs)); err != nil {
		return inc, err
	}

	for _, item := range core.SplitList(row.Get("plate_numbers")) {
		key, err := ParsePlate(item)
		if err != nil {
			return inc, err
		}
		id, err := r.plate(ctx, key, row.Line)
		if err != nil {
			return inc, err
		}
		inc.PlateIDs = append(inc.PlateIDs, id)
	}
	return inc, nil
}

func (r *run) incidentsPass(ctx context.Context, t *core.Table) error {
	return r.eachRow(ctx, t, EntityIncidents, func(row core.Row) error {
		ref, err := ParseRef(core.ColID, row.Get(core.ColID))
		if err != nil {
			return err
		}
		if err := checkToken(r.incidentRefs, ref); err != nil {
			return err
		}
		inc, err := r.parseIncident(ctx, row)
		if err != nil {
			return err
		}

		switch r.plan.plan(ref) {
		case actUpdate:
			id, _ := ref.ID()
			existing, ok := r.incidents[id]
			if !ok {
				return &core.ReferenceError{Entity: "incident", Value: ref.String(), Reason: "does not exist in this partition"}
			}
			return r.updateIncident(ctx, existing, inc, row)
		case actReplace:
			id, _ := ref.ID()
			if err := r.deleteIncident(ctx, id, row.Line); err != nil {
				return err
			}
			inc.ID = id
			return r.insertIncident(ctx, ref, inc, row.Line)
		default:
			if r.opts.Create == Incremental {
				if match, ok := r.equivalentIncident(inc); ok {
					r.claim(EntityIncidents, match.ID)
					if err := bind(r.incidentRefs, ref, match.ID); err != nil {
						return err
					}
					return r.updateIncident(ctx, match, inc, row)
				}
			}
			return r.insertIncident(ctx, ref, inc, row.Line)
		}
	})
}

// equivalentIncident finds an unclaimed incident the row describes: the same
// report number, or without one the same date, time, description and address.
// A row with none of those must equal the incident outright, associations
// included.
func (r *run) equivalentIncident(inc model.Incident) (model.Incident, bool) {
	ids := make([]int64, 0, len(r.incidents))
	for id := range r.incidents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if r.isClaimed(EntityIncidents, id) {
			continue
		}
		e := r.incidents[id]
		if inc.ReportNumber.Valid {
			if model.TextEqual(e.ReportNumber, inc.ReportNumber) {
				return e, true
			}
			continue
		}
		if !inc.Date.Valid && !inc.Time.Valid && !inc.Description.Valid && !inc.AddressID.Valid {
			if incidentEqual(e, inc) {
				return e, true
			}
			continue
		}
		if !e.ReportNumber.Valid &&
			model.DateEqual(e.Date, inc.Date) &&
			model.TimeEqual(e.Time, inc.Time) &&
			model.TextEqual(e.Description, inc.Description) &&
			model.Int8Equal(e.AddressID, inc.AddressID) {
			return e, true
		}
	}
	return model.Incident{}, false
}

func (r *run) insertIncident(ctx context.Context, ref Ref, inc model.Incident, line int) error {
	if err := r.tx.InsertIncident(ctx, &inc); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	r.incidents[inc.ID] = inc
	r.claim(EntityIncidents, inc.ID)
	if err := bind(r.incidentRefs, ref, inc.ID); err != nil {
		return err
	}
	r.report.created(EntityIncidents, inc.ID, r.file, line)
	return nil
}

// updateIncident applies the row's present columns. A present officer_ids or
// plate_numbers column replaces the whole association set.
func (r *run) updateIncident(ctx context.Context, existing, in model.Incident, row core.Row) error {
	inc := existing
	if row.Has("date") {
		inc.Date = in.Date
	}
	if row.Has("time") {
		inc.Time = in.Time
	}
	if row.Has("report_number") {
		inc.ReportNumber = in.ReportNumber
	}
	if row.Has("description") {
		inc.Description = in.Description
	}
	if hasAddress(row) {
		inc.AddressID = in.AddressID
	}
	if row.Has(core.ColOfficerIDs) {
		inc.OfficerIDs = in.OfficerIDs
	}
	if row.Has("plate_numbers") {
		inc.PlateIDs = in.PlateIDs
	}

	r.claim(EntityIncidents, inc.ID)
	if incidentEqual(existing, inc) {
		r.report.unchanged(EntityIncidents)
		return nil
	}
	if err := r.tx.UpdateIncident(ctx, inc); err != nil {
		return fmt.Errorf("update incident %d: %w", inc.ID, err)
	}
	r.incidents[inc.ID] = inc
	r.report.updated(EntityIncidents, inc.ID, r.file, row.Line)
	return nil
}

func (r *run) deleteIncident(ctx context.Context, id int64, line int) error {
	if _, err := r.tx.Incident(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load incident %d: %w", id, err)
	}
	if err := r.tx.DeleteIncident(ctx, id); err != nil {
		return fmt.Errorf("delete incident %d: %w", id, err)
	}
	delete(r.incidents, id)
	for lid, l := range r.links {
		l.IncidentIDs = without(l.IncidentIDs, id)
		r.links[lid] = l
	}
	r.report.deleted(EntityIncidents, id, r.file, line)
	return nil
}

func incidentEqual(a, b model.Incident) bool {
	return model.DateEqual(a.Date, b.Date) &&
		model.TimeEqual(a.Time, b.Time) &&
		model.TextEqual(a.ReportNumber, b.ReportNumber) &&
		model.TextEqual(a.Description, b.Description) &&
		model.Int8Equal(a.AddressID, b.AddressID) &&
		model.IDsEqual(a.OfficerIDs, b.OfficerIDs) &&
		model.IDsEqual(a.PlateIDs, b.PlateIDs)
}
