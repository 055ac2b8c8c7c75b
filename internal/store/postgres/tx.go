package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

type pgTx struct {
	tx pgx.Tx
}

var _ store.Tx = (*pgTx)(nil)

// Flush is a no-op: every statement runs when issued.
func (t *pgTx) Flush(context.Context) error { return nil }

func (t *pgTx) Commit(ctx context.Context) error {
	return wrap("commit", t.tx.Commit(ctx))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return wrap("rollback", err)
}

// ============================================================================
// Departments
// ============================================================================

func (t *pgTx) FindDepartment(ctx context.Context, name, region string) (model.Department, error) {
	d := model.Department{Name: name, Region: region}
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM departments WHERE name = $1 AND state = $2`, name, region,
	).Scan(&d.ID)
	if err != nil {
		return model.Department{}, wrap(fmt.Sprintf("find department %q (%s)", name, region), err)
	}
	return d, nil
}

// LockDepartment takes a transaction-scoped advisory lock keyed by the
// department id.
func (t *pgTx) LockDepartment(ctx context.Context, departmentID int64) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, departmentID)
	return wrap("lock department", err)
}

// ============================================================================
// Officers
// ============================================================================

const officerColumns = `id, department_id, first_name, last_name, middle_initial, suffix, race, gender,
	employment_date, birth_year, unique_internal_identifier`

func scanOfficer(row pgx.Row) (model.Officer, error) {
	var o model.Officer
	err := row.Scan(&o.ID, &o.DepartmentID, &o.FirstName, &o.LastName, &o.MiddleInitial,
		&o.Suffix, &o.Race, &o.Gender, &o.EmploymentDate, &o.BirthYear, &o.UniqueIdentifier)
	return o, err
}

func (t *pgTx) Officers(ctx context.Context, departmentID int64) ([]model.Officer, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+officerColumns+` FROM officers WHERE department_id = $1 ORDER BY id`, departmentID)
	if err != nil {
		return nil, wrap("list officers", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Officer, error) { return scanOfficer(r) })
	return out, wrap("list officers", err)
}

func (t *pgTx) Officer(ctx context.Context, id int64) (model.Officer, error) {
	o, err := scanOfficer(t.tx.QueryRow(ctx, `SELECT `+officerColumns+` FROM officers WHERE id = $1`, id))
	if err != nil {
		return model.Officer{}, wrap(fmt.Sprintf("officer %d", id), err)
	}
	return o, nil
}

func (t *pgTx) InsertOfficer(ctx context.Context, o *model.Officer) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO officers (id, department_id, first_name, last_name, middle_initial, suffix, race, gender,
			employment_date, birth_year, unique_internal_identifier)
		 VALUES (COALESCE($1, nextval(pg_get_serial_sequence('officers', 'id'))), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		optionalID(o.ID), o.DepartmentID, o.FirstName, o.LastName, o.MiddleInitial, o.Suffix, o.Race, o.Gender,
		o.EmploymentDate, o.BirthYear, o.UniqueIdentifier,
	).Scan(&o.ID)
	return wrap("insert officer", err)
}

func (t *pgTx) UpdateOfficer(ctx context.Context, o model.Officer) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE officers SET first_name = $2, last_name = $3, middle_initial = $4, suffix = $5, race = $6,
			gender = $7, employment_date = $8, birth_year = $9, unique_internal_identifier = $10
		 WHERE id = $1`,
		o.ID, o.FirstName, o.LastName, o.MiddleInitial, o.Suffix, o.Race,
		o.Gender, o.EmploymentDate, o.BirthYear, o.UniqueIdentifier,
	)
	return exactlyOne(fmt.Sprintf("update officer %d", o.ID), tag, err)
}

func (t *pgTx) DeleteOfficer(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM officers WHERE id = $1`, id)
	return exactlyOne(fmt.Sprintf("delete officer %d", id), tag, err)
}

// ============================================================================
// Jobs and units
// ============================================================================

func (t *pgTx) Jobs(ctx context.Context, departmentID int64) ([]model.Job, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, department_id, job_title, "order" FROM jobs WHERE department_id = $1 ORDER BY "order", id`,
		departmentID)
	if err != nil {
		return nil, wrap("list jobs", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Job, error) {
		var j model.Job
		err := r.Scan(&j.ID, &j.DepartmentID, &j.Title, &j.Order)
		return j, err
	})
	return out, wrap("list jobs", err)
}

func (t *pgTx) InsertJob(ctx context.Context, j *model.Job) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO jobs (department_id, job_title, "order") VALUES ($1, $2, $3) RETURNING id`,
		j.DepartmentID, j.Title, j.Order,
	).Scan(&j.ID)
	return wrap("insert job", err)
}

func (t *pgTx) Units(ctx context.Context, departmentID int64) ([]model.Unit, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, department_id, descrip FROM unit_types WHERE department_id = $1 ORDER BY id`, departmentID)
	if err != nil {
		return nil, wrap("list units", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Unit, error) {
		var u model.Unit
		err := r.Scan(&u.ID, &u.DepartmentID, &u.Name)
		return u, err
	})
	return out, wrap("list units", err)
}

func (t *pgTx) InsertUnit(ctx context.Context, u *model.Unit) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO unit_types (department_id, descrip) VALUES ($1, $2) RETURNING id`,
		u.DepartmentID, u.Name,
	).Scan(&u.ID)
	return wrap("insert unit", err)
}

// ============================================================================
// Assignments
// ============================================================================

const assignmentColumns = `a.id, a.officer_id, a.job_id, a.unit_id, a.star_no, a.star_date, a.resign_date`

func scanAssignment(row pgx.Row) (model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(&a.ID, &a.OfficerID, &a.JobID, &a.UnitID, &a.Badge, &a.StartDate, &a.EndDate)
	return a, err
}

func (t *pgTx) Assignments(ctx context.Context, departmentID int64) ([]model.Assignment, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM assignments a JOIN officers o ON o.id = a.officer_id
		 WHERE o.department_id = $1 ORDER BY a.id`, departmentID)
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Assignment, error) { return scanAssignment(r) })
	return out, wrap("list assignments", err)
}

func (t *pgTx) Assignment(ctx context.Context, id int64) (model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1`, id))
	if err != nil {
		return model.Assignment{}, wrap(fmt.Sprintf("assignment %d", id), err)
	}
	return a, nil
}

func (t *pgTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO assignments (id, officer_id, job_id, unit_id, star_no, star_date, resign_date)
		 VALUES (COALESCE($1, nextval(pg_get_serial_sequence('assignments', 'id'))), $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		optionalID(a.ID), a.OfficerID, a.JobID, a.UnitID, a.Badge, a.StartDate, a.EndDate,
	).Scan(&a.ID)
	return wrap("insert assignment", err)
}

func (t *pgTx) UpdateAssignment(ctx context.Context, a model.Assignment) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE assignments SET officer_id = $2, job_id = $3, unit_id = $4, star_no = $5, star_date = $6, resign_date = $7
		 WHERE id = $1`,
		a.ID, a.OfficerID, a.JobID, a.UnitID, a.Badge, a.StartDate, a.EndDate,
	)
	return exactlyOne(fmt.Sprintf("update assignment %d", a.ID), tag, err)
}

func (t *pgTx) DeleteAssignment(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	return exactlyOne(fmt.Sprintf("delete assignment %d", id), tag, err)
}

func (t *pgTx) DeleteAssignmentsForOfficers(ctx context.Context, officerIDs []int64) (int64, error) {
	if len(officerIDs) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM assignments WHERE officer_id = ANY($1)`, officerIDs)
	if err != nil {
		return 0, wrap("delete assignments", err)
	}
	return tag.RowsAffected(), nil
}

// ============================================================================
// Salaries
// ============================================================================

// Amounts travel as text so the decimal keeps its exact value.
const salaryColumns = `s.id, s.officer_id, s.salary::text, s.overtime_pay::text, s.year, s.is_fiscal_year`

func scanSalary(row pgx.Row) (model.Salary, error) {
	var (
		s        model.Salary
		amount   string
		overtime pgtype.Text
	)
	if err := row.Scan(&s.ID, &s.OfficerID, &amount, &overtime, &s.Year, &s.IsFiscalYear); err != nil {
		return s, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return s, fmt.Errorf("salary %d amount %q: %w", s.ID, amount, err)
	}
	s.Amount = d
	if overtime.Valid {
		ot, err := decimal.NewFromString(overtime.String)
		if err != nil {
			return s, fmt.Errorf("salary %d overtime %q: %w", s.ID, overtime.String, err)
		}
		s.Overtime = decimal.NullDecimal{Decimal: ot, Valid: true}
	}
	return s, nil
}

func numericText(d decimal.NullDecimal) pgtype.Text {
	if !d.Valid {
		return pgtype.Text{}
	}
	return pgtype.Text{String: d.Decimal.String(), Valid: true}
}

func (t *pgTx) Salaries(ctx context.Context, departmentID int64) ([]model.Salary, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+salaryColumns+`
		 FROM salaries s JOIN officers o ON o.id = s.officer_id
		 WHERE o.department_id = $1 ORDER BY s.id`, departmentID)
	if err != nil {
		return nil, wrap("list salaries", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Salary, error) { return scanSalary(r) })
	return out, wrap("list salaries", err)
}

func (t *pgTx) Salary(ctx context.Context, id int64) (model.Salary, error) {
	s, err := scanSalary(t.tx.QueryRow(ctx, `SELECT `+salaryColumns+` FROM salaries s WHERE s.id = $1`, id))
	if err != nil {
		return model.Salary{}, wrap(fmt.Sprintf("salary %d", id), err)
	}
	return s, nil
}

func (t *pgTx) InsertSalary(ctx context.Context, s *model.Salary) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO salaries (id, officer_id, salary, overtime_pay, year, is_fiscal_year)
		 VALUES (COALESCE($1, nextval(pg_get_serial_sequence('salaries', 'id'))), $2, $3::text::numeric, $4::text::numeric, $5, $6)
		 RETURNING id`,
		optionalID(s.ID), s.OfficerID, s.Amount.String(), numericText(s.Overtime), s.Year, s.IsFiscalYear,
	).Scan(&s.ID)
	return wrap("insert salary", err)
}

func (t *pgTx) UpdateSalary(ctx context.Context, s model.Salary) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE salaries SET officer_id = $2, salary = $3::text::numeric, overtime_pay = $4::text::numeric, year = $5, is_fiscal_year = $6
		 WHERE id = $1`,
		s.ID, s.OfficerID, s.Amount.String(), numericText(s.Overtime), s.Year, s.IsFiscalYear,
	)
	return exactlyOne(fmt.Sprintf("update salary %d", s.ID), tag, err)
}

func (t *pgTx) DeleteSalary(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM salaries WHERE id = $1`, id)
	return exactlyOne(fmt.Sprintf("delete salary %d", id), tag, err)
}
