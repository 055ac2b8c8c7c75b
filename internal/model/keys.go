package model

import (
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// AddressKey is the natural key of an Address. A blank component is NULL and
// equals only another NULL.
type AddressKey struct {
	StreetName   pgtype.Text
	CrossStreet1 pgtype.Text
	CrossStreet2 pgtype.Text
	City         pgtype.Text
	State        pgtype.Text
	ZipCode      pgtype.Text
}

// IsEmpty reports whether every component is NULL.
func (k AddressKey) IsEmpty() bool {
	return !k.StreetName.Valid && !k.CrossStreet1.Valid && !k.CrossStreet2.Valid &&
		!k.City.Valid && !k.State.Valid && !k.ZipCode.Valid
}

// Equal compares every component, NULL matching only NULL.
func (k AddressKey) Equal(o AddressKey) bool {
	return TextEqual(k.StreetName, o.StreetName) &&
		TextEqual(k.CrossStreet1, o.CrossStreet1) &&
		TextEqual(k.CrossStreet2, o.CrossStreet2) &&
		TextEqual(k.City, o.City) &&
		TextEqual(k.State, o.State) &&
		TextEqual(k.ZipCode, o.ZipCode)
}

// PlateKey is the natural key of a Plate.
type PlateKey struct {
	Number string
	State  pgtype.Text
}

// IsEmpty reports whether the plate has no number.
func (k PlateKey) IsEmpty() bool {
	return k.Number == ""
}

// Equal compares the plate number exactly and the state NULL-aware.
func (k PlateKey) Equal(o PlateKey) bool {
	return k.Number == o.Number && TextEqual(k.State, o.State)
}

// TextEqual treats two NULLs as equal and a NULL as different from any string,
// including the empty one.
func TextEqual(a, b pgtype.Text) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.String == b.String
}

// TextFoldEqual is TextEqual ignoring case.
func TextFoldEqual(a, b pgtype.Text) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || strings.EqualFold(a.String, b.String)
}

// DateEqual compares calendar dates, NULL matching only NULL.
func DateEqual(a, b pgtype.Date) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	ay, am, ad := a.Time.Date()
	by, bm, bd := b.Time.Date()
	return ay == by && am == bm && ad == bd
}

// TimeEqual compares times of day, NULL matching only NULL.
func TimeEqual(a, b pgtype.Time) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Microseconds == b.Microseconds
}

// Int4Equal compares nullable integers.
func Int4Equal(a, b pgtype.Int4) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Int32 == b.Int32
}

// Int8Equal compares nullable ids.
func Int8Equal(a, b pgtype.Int8) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Int64 == b.Int64
}

// DecimalEqual compares nullable amounts by value, so 10 equals 10.00.
func DecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// IDsEqual compares two ordered id lists.
func IDsEqual(a, b []int64) bool {
	return slices.Equal(a, b)
}

// AssignmentKey is the tuple incremental assignment imports dedup on.
type AssignmentKey struct {
	Badge     pgtype.Text
	UnitID    pgtype.Int8
	JobID     int64
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

// Key returns the dedup tuple of a.
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{Badge: a.Badge, UnitID: a.UnitID, JobID: a.JobID, StartDate: a.StartDate, EndDate: a.EndDate}
}

// Equal compares every component; absent and NULL are the same thing here.
func (k AssignmentKey) Equal(o AssignmentKey) bool {
	return TextEqual(k.Badge, o.Badge) &&
		Int8Equal(k.UnitID, o.UnitID) &&
		k.JobID == o.JobID &&
		DateEqual(k.StartDate, o.StartDate) &&
		DateEqual(k.EndDate, o.EndDate)
}

// SalaryKey is the tuple incremental pay imports dedup on.
type SalaryKey struct {
	Amount       decimal.Decimal
	Overtime     decimal.NullDecimal
	Year         int32
	IsFiscalYear bool
}

// Key returns the dedup tuple of s.
func (s Salary) Key() SalaryKey {
	return SalaryKey{Amount: s.Amount, Overtime: s.Overtime, Year: s.Year, IsFiscalYear: s.IsFiscalYear}
}

// Equal compares amounts by value and overtime NULL-aware.
func (k SalaryKey) Equal(o SalaryKey) bool {
	return k.Amount.Equal(o.Amount) &&
		DecimalEqual(k.Overtime, o.Overtime) &&
		k.Year == o.Year &&
		k.IsFiscalYear == o.IsFiscalYear
}
