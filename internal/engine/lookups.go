package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

// loadLookups reads the department's roles and units once per run.
func (r *run) loadLookups(ctx context.Context) error {
	if r.jobs != nil {
		return nil
	}

	jobs, err := r.tx.Jobs(ctx, r.dept.ID)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	r.jobs = make(map[string]model.Job, len(jobs))
	for _, j := range jobs {
		key := core.FoldName(j.Title)
		if _, ok := r.jobs[key]; !ok {
			r.jobs[key] = j
		}
	}
	r.jobCount = len(jobs)

	units, err := r.tx.Units(ctx, r.dept.ID)
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}
	r.units = make(map[string]model.Unit, len(units))
	r.unitByID = make(map[int64]model.Unit, len(units))
	for _, u := range units {
		r.unitByID[u.ID] = u
		key := core.FoldName(u.Name)
		if _, ok := r.units[key]; !ok {
			r.units[key] = u
		}
	}
	return nil
}

// job returns the department's role with the title, ignoring case, creating
// it at the end of the display order when missing.
func (r *run) job(ctx context.Context, title string, line int) (model.Job, error) {
	title = strings.TrimSpace(title)
	key := core.FoldName(title)
	if j, ok := r.jobs[key]; ok {
		return j, nil
	}

	j := model.Job{DepartmentID: r.dept.ID, Title: title, Order: int32(r.jobCount)}
	if err := r.tx.InsertJob(ctx, &j); err != nil {
		return model.Job{}, fmt.Errorf("insert job %q: %w", title, err)
	}
	r.jobs[key] = j
	r.jobCount++
	r.report.created(EntityJobs, j.ID, r.file, line)
	return j, nil
}

// unit returns the department's unit with the name, creating it when missing.
func (r *run) unit(ctx context.Context, name string, line int) (model.Unit, error) {
	name = strings.TrimSpace(name)
	key := core.FoldName(name)
	if u, ok := r.units[key]; ok {
		return u, nil
	}

	u := model.Unit{DepartmentID: r.dept.ID, Name: name}
	if err := r.tx.InsertUnit(ctx, &u); err != nil {
		return model.Unit{}, fmt.Errorf("insert unit %q: %w", name, err)
	}
	r.units[key] = u
	r.unitByID[u.ID] = u
	r.report.created(EntityUnits, u.ID, r.file, line)
	return u, nil
}

// unitFor resolves a row's unit columns. unit_id wins over unit_name.
func (r *run) unitFor(ctx context.Context, row core.Row) (pgtype.Int8, error) {
	if cell := row.Get("unit_id"); cell != "" {
		ref, err := ParseRef("unit_id", cell)
		if err != nil {
			return pgtype.Int8{}, err
		}
		id, ok := ref.ID()
		if !ok {
			return pgtype.Int8{}, &core.FieldError{Field: "unit_id", Value: cell, Message: "must be a numeric id"}
		}
		if _, ok := r.unitByID[id]; !ok {
			return pgtype.Int8{}, &core.ReferenceError{Entity: "unit", Value: cell, Reason: "does not belong to this partition"}
		}
		return pgtype.Int8{Int64: id, Valid: true}, nil
	}

	if name := row.Get("unit_name"); name != "" {
		u, err := r.unit(ctx, name, row.Line)
		if err != nil {
			return pgtype.Int8{}, err
		}
		return pgtype.Int8{Int64: u.ID, Valid: true}, nil
	}
	return pgtype.Int8{}, nil
}

// address returns the id of the address with the key, inserting it on first
// sight. An empty key is no address.
func (r *run) address(ctx context.Context, key model.AddressKey, line int) (pgtype.Int8, error) {
	if key.IsEmpty() {
		return pgtype.Int8{}, nil
	}

	a, err := r.tx.FindAddress(ctx, key)
	if err == nil {
		return pgtype.Int8{Int64: a.ID, Valid: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return pgtype.Int8{}, fmt.Errorf("find address: %w", err)
	}

	a = model.Address{AddressKey: key}
	if err := r.tx.InsertAddress(ctx, &a); err != nil {
		return pgtype.Int8{}, fmt.Errorf("insert address: %w", err)
	}
	r.report.created(EntityAddresses, a.ID, r.file, line)
	return pgtype.Int8{Int64: a.ID, Valid: true}, nil
}

// plate returns the id of the plate with the key, inserting it on first sight.
func (r *run) plate(ctx context.Context, key model.PlateKey, line int) (int64, error) {
	p, err := r.tx.FindPlate(ctx, key)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("find license plate: %w", err)
	}

	p = model.Plate{PlateKey: key}
	if err := r.tx.InsertPlate(ctx, &p); err != nil {
		return 0, fmt.Errorf("insert license plate %q: %w", key.Number, err)
	}
	r.report.created(EntityPlates, p.ID, r.file, line)
	return p.ID, nil
}

// ParsePlate splits a "NUMBER_STATE" cell item on its last underscore. An item
// without one is a plate with no state.
func ParsePlate(item string) (model.PlateKey, error) {
	item = strings.TrimSpace(item)
	number, state := item, ""
	if i := strings.LastIndex(item, "_"); i >= 0 {
		number, state = strings.TrimSpace(item[:i]), item[i+1:]
	}
	if number == "" {
		return model.PlateKey{}, &core.FieldError{Field: "plate_numbers", Value: item, Message: "plate has no number"}
	}
	st, err := core.ParseState("plate_numbers", state)
	if err != nil {
		return model.PlateKey{}, err
	}
	return model.PlateKey{Number: number, State: st}, nil
}
