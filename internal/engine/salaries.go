package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

func (r *run) parseSalary(row core.Row) (model.Salary, error) {
	var s model.Salary

	officerID, err := r.resolveOfficer(row)
	if err != nil {
		return s, err
	}
	s.OfficerID = officerID

	amount, err := core.ParseDecimal("amount", row.Get("amount"))
	if err != nil {
		return s, err
	}
	if !amount.Valid {
		return s, &core.FieldError{Field: "amount", Message: "is required"}
	}
	s.Amount = amount.Decimal

	if s.Overtime, err = core.ParseDecimal("overtime_amount", row.Get("overtime_amount")); err != nil {
		return s, err
	}

	year, err := core.ParseInt("year", row.Get("year"))
	if err != nil {
		return s, err
	}
	if !year.Valid {
		return s, &core.FieldError{Field: "year", Message: "is required"}
	}
	s.Year = year.Int32

	if s.IsFiscalYear, err = core.ParseBool("is_fiscal_year", row.Get("is_fiscal_year")); err != nil {
		return s, err
	}
	return s, nil
}

func (r *run) loadSalaries(ctx context.Context) error {
	salaries, err := r.tx.Salaries(ctx, r.dept.ID)
	if err != nil {
		return fmt.Errorf("load salaries: %w", err)
	}
	r.salaries = make(map[int64]model.Salary, len(salaries))
	ids := make([]int64, 0, len(salaries))
	for _, s := range salaries {
		r.salaries[s.ID] = s
		ids = append(ids, s.ID)
	}
	r.salaryRefs = NewResolver("salary", ids)
	return nil
}

func (r *run) salariesPass(ctx context.Context, t *core.Table) error {
	if err := r.loadSalaries(ctx); err != nil {
		return err
	}

	return r.eachRow(ctx, t, EntitySalaries, func(row core.Row) error {
		ref, err := ParseRef(core.ColID, row.Get(core.ColID))
		if err != nil {
			return err
		}
		if err := checkToken(r.salaryRefs, ref); err != nil {
			return err
		}
		s, err := r.parseSalary(row)
		if err != nil {
			return err
		}

		switch r.plan.plan(ref) {
		case actUpdate:
			id, _ := ref.ID()
			existing, ok := r.salaries[id]
			if !ok {
				return &core.ReferenceError{Entity: "salary", Value: ref.String(), Reason: "does not exist in this partition"}
			}
			return r.updateSalary(ctx, existing, s, row)
		case actReplace:
			id, _ := ref.ID()
			if err := r.deleteSalary(ctx, id, row.Line); err != nil {
				return err
			}
			s.ID = id
			return r.insertSalary(ctx, ref, s, row.Line)
		default:
			if r.opts.Create == Incremental {
				if dup, ok := r.duplicateSalary(s); ok {
					r.report.skipped(EntitySalaries)
					return bind(r.salaryRefs, ref, dup.ID)
				}
			}
			return r.insertSalary(ctx, ref, s, row.Line)
		}
	})
}

// duplicateSalary finds a pay record of the same officer with the same amount,
// overtime, year and fiscal flag.
func (r *run) duplicateSalary(s model.Salary) (model.Salary, bool) {
	key := s.Key()
	var best model.Salary
	found := false
	for _, e := range r.salaries {
		if e.OfficerID != s.OfficerID || !e.Key().Equal(key) {
			continue
		}
		if !found || e.ID < best.ID {
			best, found = e, true
		}
	}
	return best, found
}

func (r *run) insertSalary(ctx context.Context, ref Ref, s model.Salary, line int) error {
	if err := r.tx.InsertSalary(ctx, &s); err != nil {
		return fmt.Errorf("insert salary: %w", err)
	}
	r.salaries[s.ID] = s
	if err := bind(r.salaryRefs, ref, s.ID); err != nil {
		return err
	}
	r.report.created(EntitySalaries, s.ID, r.file, line)
	return nil
}

func (r *run) updateSalary(ctx context.Context, existing, in model.Salary, row core.Row) error {
	s := existing
	s.OfficerID = in.OfficerID
	s.Amount = in.Amount
	s.Year = in.Year
	if row.Has("overtime_amount") {
		s.Overtime = in.Overtime
	}
	if row.Has("is_fiscal_year") {
		s.IsFiscalYear = in.IsFiscalYear
	}

	if s.OfficerID == existing.OfficerID && s.Key().Equal(existing.Key()) {
		r.report.unchanged(EntitySalaries)
		return nil
	}
	if err := r.tx.UpdateSalary(ctx, s); err != nil {
		return fmt.Errorf("update salary %d: %w", s.ID, err)
	}
	r.salaries[s.ID] = s
	r.report.updated(EntitySalaries, s.ID, r.file, row.Line)
	return nil
}

func (r *run) deleteSalary(ctx context.Context, id int64, line int) error {
	if _, err := r.tx.Salary(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load salary %d: %w", id, err)
	}
	if err := r.tx.DeleteSalary(ctx, id); err != nil {
		return fmt.Errorf("delete salary %d: %w", id, err)
	}
	delete(r.salaries, id)
	r.report.deleted(EntitySalaries, id, r.file, line)
	return nil
}
