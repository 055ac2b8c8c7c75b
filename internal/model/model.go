// Package model defines the entities an import reconciles.
//
// Nullable columns use pgtype values so the zero value is NULL and a present
// zero stays distinguishable from absent. Money uses decimal.
package model

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Department is a registry partition. Roles, units, officers and incidents
// belong to exactly one.
type Department struct {
	ID     int64
	Name   string
	Region string // two-letter state code
}

// Officer is a person on a department's roster.
type Officer struct {
	ID               int64
	DepartmentID     int64
	FirstName        string
	LastName         string
	MiddleInitial    string
	Suffix           pgtype.Text
	Race             pgtype.Text
	Gender           pgtype.Text
	EmploymentDate   pgtype.Date
	BirthYear        pgtype.Int4
	UniqueIdentifier pgtype.Text
}

// Job is a role title. Order is its display position within the department.
type Job struct {
	ID           int64
	DepartmentID int64
	Title        string
	Order        int32
}

// Unit is an organisational unit of a department.
type Unit struct {
	ID           int64
	DepartmentID int64
	Name         string
}

// Assignment is one stint of an officer in a role.
type Assignment struct {
	ID        int64
	OfficerID int64
	JobID     int64
	UnitID    pgtype.Int8
	Badge     pgtype.Text
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

// Salary is one pay record of an officer.
type Salary struct {
	ID           int64
	OfficerID    int64
	Amount       decimal.Decimal
	Overtime     decimal.NullDecimal
	Year         int32
	IsFiscalYear bool
}

// Address is a location dimension row.
type Address struct {
	ID int64
	AddressKey
}

// Plate is a vehicle license plate dimension row.
type Plate struct {
	ID int64
	PlateKey
}

// Incident is a reported event within a department.
type Incident struct {
	ID           int64
	DepartmentID int64
	Date         pgtype.Date
	Time         pgtype.Time
	ReportNumber pgtype.Text
	Description  pgtype.Text
	AddressID    pgtype.Int8
	OfficerIDs   []int64 // ordered as supplied
	PlateIDs     []int64
}

// Link is a titled URL attached to officers and incidents.
type Link struct {
	ID          int64
	Title       string
	URL         string
	Category    pgtype.Text
	Description pgtype.Text
	Author      pgtype.Text
	OfficerIDs  []int64
	IncidentIDs []int64
}
