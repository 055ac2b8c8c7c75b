// Package store declares the persistence operations an import needs and
// provides an in-memory implementation.
//
// All reads and writes of one run go through a single Tx. Reads observe the
// state at Begin plus the run's own writes. Inserts return the generated id
// immediately; Flush exists for stores that buffer writes.
package store

import (
	"context"

	"github.com/JonMunkholm/rosterimport/internal/model"
)

// Tables whose id sequences are resynchronized after a force-create run.
// Entity kinds added later must be added here by hand.
var ResyncTables = []string{"officers", "salaries", "assignments", "links", "incidents"}

// Store opens transactions and performs maintenance outside of them.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	// ResyncSequences moves each table's id generator to its current maximum id.
	ResyncSequences(ctx context.Context, tables []string) error
}

// DepartmentStore resolves partitions.
type DepartmentStore interface {
	FindDepartment(ctx context.Context, name, region string) (model.Department, error)
	// LockDepartment serializes runs against one department for the rest of
	// the transaction.
	LockDepartment(ctx context.Context, departmentID int64) error
}

// OfficerStore persists officers. Insert honors a non-zero ID.
type OfficerStore interface {
	Officers(ctx context.Context, departmentID int64) ([]model.Officer, error)
	Officer(ctx context.Context, id int64) (model.Officer, error)
	InsertOfficer(ctx context.Context, o *model.Officer) error
	UpdateOfficer(ctx context.Context, o model.Officer) error
	DeleteOfficer(ctx context.Context, id int64) error
}

// LookupStore persists department roles and units.
type LookupStore interface {
	Jobs(ctx context.Context, departmentID int64) ([]model.Job, error)
	InsertJob(ctx context.Context, j *model.Job) error
	Units(ctx context.Context, departmentID int64) ([]model.Unit, error)
	InsertUnit(ctx context.Context, u *model.Unit) error
}

// AssignmentStore persists assignments.
type AssignmentStore interface {
	// Assignments returns every assignment of the department's officers.
	Assignments(ctx context.Context, departmentID int64) ([]model.Assignment, error)
	Assignment(ctx context.Context, id int64) (model.Assignment, error)
	InsertAssignment(ctx context.Context, a *model.Assignment) error
	UpdateAssignment(ctx context.Context, a model.Assignment) error
	DeleteAssignment(ctx context.Context, id int64) error
	DeleteAssignmentsForOfficers(ctx context.Context, officerIDs []int64) (int64, error)
}

// SalaryStore persists pay records.
type SalaryStore interface {
	Salaries(ctx context.Context, departmentID int64) ([]model.Salary, error)
	Salary(ctx context.Context, id int64) (model.Salary, error)
	InsertSalary(ctx context.Context, s *model.Salary) error
	UpdateSalary(ctx context.Context, s model.Salary) error
	DeleteSalary(ctx context.Context, id int64) error
}

// IncidentStore persists incidents with their officer and plate associations.
type IncidentStore interface {
	Incidents(ctx context.Context, departmentID int64) ([]model.Incident, error)
	Incident(ctx context.Context, id int64) (model.Incident, error)
	InsertIncident(ctx context.Context, i *model.Incident) error
	UpdateIncident(ctx context.Context, i model.Incident) error
	DeleteIncident(ctx context.Context, id int64) error
}

// LinkStore persists links with their officer and incident associations.
type LinkStore interface {
	// Links returns links attached to any officer or incident of the department.
	Links(ctx context.Context, departmentID int64) ([]model.Link, error)
	Link(ctx context.Context, id int64) (model.Link, error)
	// LinksByURL returns every link with the URL, attached or not.
	LinksByURL(ctx context.Context, url string) ([]model.Link, error)
	InsertLink(ctx context.Context, l *model.Link) error
	UpdateLink(ctx context.Context, l model.Link) error
	DeleteLink(ctx context.Context, id int64) error
}

// DimensionStore looks up and inserts natural-key rows.
type DimensionStore interface {
	FindAddress(ctx context.Context, key model.AddressKey) (model.Address, error)
	InsertAddress(ctx context.Context, a *model.Address) error
	FindPlate(ctx context.Context, key model.PlateKey) (model.Plate, error)
	InsertPlate(ctx context.Context, p *model.Plate) error
}

// Tx is one import run's unit of work.
type Tx interface {
	DepartmentStore
	OfficerStore
	LookupStore
	AssignmentStore
	SalaryStore
	IncidentStore
	LinkStore
	DimensionStore

	// Flush makes pending writes visible to later statements without committing.
	Flush(ctx context.Context) error
	Commit(ctx context.Context) error
	// Rollback discards the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}
