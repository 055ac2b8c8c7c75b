package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
)

// Memory is an in-memory Store. A transaction works on a private copy of the
// data that replaces the committed state on Commit. Only one transaction can
// be open at a time; Begin blocks until the previous one ends.
type Memory struct {
	txMu sync.Mutex // held for the lifetime of a transaction

	mu   sync.RWMutex
	data *memData
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

type memData struct {
	departments *table[model.Department]
	officers    *table[model.Officer]
	jobs        *table[model.Job]
	units       *table[model.Unit]
	assignments *table[model.Assignment]
	salaries    *table[model.Salary]
	incidents   *table[model.Incident]
	links       *table[model.Link]
	addresses   *table[model.Address]
	plates      *table[model.Plate]
}

func newMemData() *memData {
	return &memData{
		departments: newTable[model.Department]("departments"),
		officers:    newTable[model.Officer]("officers"),
		jobs:        newTable[model.Job]("jobs"),
		units:       newTable[model.Unit]("unit_types"),
		assignments: newTable[model.Assignment]("assignments"),
		salaries:    newTable[model.Salary]("salaries"),
		incidents:   newTable[model.Incident]("incidents"),
		links:       newTable[model.Link]("links"),
		addresses:   newTable[model.Address]("locations"),
		plates:      newTable[model.Plate]("license_plates"),
	}
}

func (d *memData) clone() *memData {
	return &memData{
		departments: d.departments.clone(),
		officers:    d.officers.clone(),
		jobs:        d.jobs.clone(),
		units:       d.units.clone(),
		assignments: d.assignments.clone(),
		salaries:    d.salaries.clone(),
		incidents:   d.incidents.clone(),
		links:       d.links.clone(),
		addresses:   d.addresses.clone(),
		plates:      d.plates.clone(),
	}
}

func (d *memData) byName(name string) (sequenced, bool) {
	for _, t := range []sequenced{
		d.departments, d.officers, d.jobs, d.units, d.assignments,
		d.salaries, d.incidents, d.links, d.addresses, d.plates,
	} {
		if t.tableName() == name {
			return t, true
		}
	}
	return nil, false
}

// table is one id-keyed relation with its own id sequence.
type table[T any] struct {
	name string
	rows map[int64]T
	seq  int64
}

type sequenced interface {
	tableName() string
	resync()
	reset()
}

func newTable[T any](name string) *table[T] {
	return &table[T]{name: name, rows: make(map[int64]T)}
}

func (t *table[T]) tableName() string { return t.name }

// Rows are values and association slices are never mutated in place,
// so a shallow map copy is a full snapshot.
func (t *table[T]) clone() *table[T] {
	return &table[T]{name: t.name, rows: maps.Clone(t.rows), seq: t.seq}
}

// resync moves the sequence to the current maximum id.
func (t *table[T]) resync() {
	var maxID int64
	for id := range t.rows {
		maxID = max(maxID, id)
	}
	t.seq = maxID
}

func (t *table[T]) reset() {
	clear(t.rows)
	t.seq = 0
}

// allocate returns the id for a new row. An explicit id does not advance the
// sequence, like an INSERT with an explicit serial value.
func (t *table[T]) allocate(explicit int64) (int64, error) {
	id := explicit
	if id == 0 {
		t.seq++
		id = t.seq
	}
	if _, exists := t.rows[id]; exists {
		return 0, &core.IntegrityError{
			Op:  "insert into " + t.name,
			Err: fmt.Errorf("duplicate key value violates unique constraint %q", t.name+"_pkey"),
		}
	}
	return id, nil
}

func (t *table[T]) get(id int64) (T, error) {
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", t.name, id, ErrNotFound)
	}
	return row, nil
}

func (t *table[T]) put(id int64, row T) {
	t.rows[id] = row
}

func (t *table[T]) replace(id int64, row T) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("update %s %d: %w", t.name, id, ErrNotFound)
	}
	t.rows[id] = row
	return nil
}

func (t *table[T]) remove(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("delete %s %d: %w", t.name, id, ErrNotFound)
	}
	delete(t.rows, id)
	return nil
}

// list returns matching rows ordered by id.
func (t *table[T]) list(match func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if match == nil || match(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = t.rows[id]
	}
	return out
}

// AddDepartment creates a department outside of any transaction.
func (m *Memory) AddDepartment(name, region string) model.Department {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, _ := m.data.departments.allocate(0)
	d := model.Department{ID: id, Name: name, Region: region}
	m.data.departments.put(id, d)
	return d
}

// Begin starts a transaction, waiting for any open one to finish.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.txMu.Lock()

	m.mu.RLock()
	snapshot := m.data.clone()
	m.mu.RUnlock()

	return &memTx{m: m, data: snapshot}, nil
}

// ResyncSequences moves each named table's sequence to its maximum id.
func (m *Memory) ResyncSequences(_ context.Context, tables []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range tables {
		t, ok := m.data.byName(name)
		if !ok {
			return fmt.Errorf("resync sequence: unknown table %q", name)
		}
		t.resync()
	}
	return nil
}

// Truncate empties a table and restarts its sequence. It waits for any open
// transaction like Begin does.
func (m *Memory) Truncate(_ context.Context, name string) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.data.byName(name)
	if !ok {
		return fmt.Errorf("truncate: unknown table %q", name)
	}
	t.reset()
	return nil
}

type memTx struct {
	m    *Memory
	data *memData
	done bool
}

func (tx *memTx) check() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

func (tx *memTx) Flush(context.Context) error {
	return tx.check()
}

func (tx *memTx) Commit(context.Context) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.m.mu.Lock()
	tx.m.data = tx.data
	tx.m.mu.Unlock()

	tx.done = true
	tx.m.txMu.Unlock()
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.m.txMu.Unlock()
	return nil
}

// ============================================================================
// Departments
// ============================================================================

func (tx *memTx) FindDepartment(_ context.Context, name, region string) (model.Department, error) {
	if err := tx.check(); err != nil {
		return model.Department{}, err
	}
	for _, d := range tx.data.departments.list(nil) {
		if d.Name == name && d.Region == region {
			return d, nil
		}
	}
	return model.Department{}, fmt.Errorf("department %q (%s): %w", name, region, ErrNotFound)
}

// LockDepartment is a no-op: Begin already serializes transactions.
func (tx *memTx) LockDepartment(context.Context, int64) error {
	return tx.check()
}

// ============================================================================
// Officers
// ============================================================================

func (tx *memTx) Officers(_ context.Context, departmentID int64) ([]model.Officer, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.data.officers.list(func(o model.Officer) bool {
		return o.DepartmentID == departmentID
	}), nil
}

func (tx *memTx) Officer(_ context.Context, id int64) (model.Officer, error) {
	if err := tx.check(); err != nil {
		return model.Officer{}, err
	}
	return tx.data.officers.get(id)
}

func (tx *memTx) InsertOfficer(_ context.Context, o *model.Officer) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.data.departments.get(o.DepartmentID); err != nil {
		return fkViolation("officers", "department_id", err)
	}
	id, err := tx.data.officers.allocate(o.ID)
	if err != nil {
		return err
	}
	o.ID = id
	tx.data.officers.put(id, *o)
	return nil
}

func (tx *memTx) UpdateOfficer(_ context.Context, o model.Officer) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.data.officers.replace(o.ID, o)
}

// DeleteOfficer cascades to the officer's assignments, pay records and
// associations, matching the ON DELETE CASCADE foreign keys of the schema.
func (tx *memTx) DeleteOfficer(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.data.officers.remove(id); err != nil {
		return err
	}
	for _, a := range tx.data.assignments.list(func(a model.Assignment) bool { return a.OfficerID == id }) {
		_ = tx.data.assignments.remove(a.ID)
	}
	for _, s := range tx.data.salaries.list(func(s model.Salary) bool { return s.OfficerID == id }) {
		_ = tx.data.salaries.remove(s.ID)
	}
	for _, i := range tx.data.incidents.list(func(i model.Incident) bool { return slices.Contains(i.OfficerIDs, id) }) {
		i.OfficerIDs = without(i.OfficerIDs, id)
		tx.data.incidents.put(i.ID, i)
	}
	for _, l := range tx.data.links.list(func(l model.Link) bool { return slices.Contains(l.OfficerIDs, id) }) {
		l.OfficerIDs = without(l.OfficerIDs, id)
		tx.data.links.put(l.ID, l)
	}
	return nil
}

// ============================================================================
// Jobs and units
// ============================================================================

func (tx *memTx) Jobs(_ context.Context, departmentID int64) ([]model.Job, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.data.jobs.list(func(j model.Job) bool { return j.DepartmentID == departmentID }), nil
}

func (tx *memTx) InsertJob(_ context.Context, j *model.Job) error {
	if err := tx.check(); err != nil {
		return err
	}
	for _, existing := range tx.data.jobs.list(func(e model.Job) bool { return e.DepartmentID == j.DepartmentID }) {
		if core.FoldName(existing.Title) == core.FoldName(j.Title) {
			return uniqueViolation("jobs", "jobs_department_title_key")
		}
	}
	id, err := tx.data.jobs.allocate(j.ID)
	if err != nil {
		return err
	}
	j.ID = id
	tx.data.jobs.put(id, *j)
	return nil
}

func (tx *memTx) Units(_ context.Context, departmentID int64) ([]model.Unit, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.data.units.list(func(u model.Unit) bool { return u.DepartmentID == departmentID }), nil
}

func (tx *memTx) InsertUnit(_ context.Context, u *model.Unit) error {
	if err := tx.check(); err != nil {
		return err
	}
	id, err := tx.data.units.allocate(u.ID)
	if err != nil {
		return err
	}
	u.ID = id
	tx.data.units.put(id, *u)
	return nil
}

// ============================================================================
// Assignments
// ============================================================================

func (tx *memTx) officerIDs(departmentID int64) map[int64]bool {
	ids := make(map[int64]bool)
	for _, o := range tx.data.officers.list(func(o model.Officer) bool { return o.DepartmentID == departmentID }) {
		ids[o.ID] = true
	}
	return ids
}

func (tx *memTx) Assignments(_ context.Context, departmentID int64) ([]model.Assignment, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	officers := tx.officerIDs(departmentID)
	return tx.data.assignments.list(func(a model.Assignment) bool { return officers[a.OfficerID] }), nil
}

func (tx *memTx) Assignment(_ context.Context, id int64) (model.Assignment, error) {
	if err := tx.check(); err != nil {
		return model.Assignment{}, err
	}
	return tx.data.assignments.get(id)
}

func (tx *memTx) InsertAssignment(_ context.Context, a *model.Assignment) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.assignmentRefs(*a); err != nil {
		return err
	}
	id, err := tx.data.assignments.allocate(a.ID)
	if err != nil {
		return err
	}
	a.ID = id
	tx.data.assignments.put(id, *a)
	return nil
}

func (tx *memTx) UpdateAssignment(_ context.Context, a model.Assignment) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.assignmentRefs(a); err != nil {
		return err
	}
	return tx.data.assignments.replace(a.ID, a)
}

func (tx *memTx) assignmentRefs(a model.Assignment) error {
	if _, err := tx.data.officers.get(a.OfficerID); err != nil {
		return fkViolation("assignments", "officer_id", err)
	}
	if _, err := tx.data.jobs.get(a.JobID); err != nil {
		return fkViolation("assignments", "job_id", err)
	}
	if a.UnitID.Valid {
		if _, err := tx.data.units.get(a.UnitID.Int64); err != nil {
			return fkViolation("assignments", "unit_id", err)
		}
	}
	return nil
}

func (tx *memTx) DeleteAssignment(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.data.assignments.remove(id)
}

func (tx *memTx) DeleteAssignmentsForOfficers(_ context.Context, officerIDs []int64) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	var n int64
	for _, a := range tx.data.assignments.list(func(a model.Assignment) bool {
		return slices.Contains(officerIDs, a.OfficerID)
	}) {
		_ = tx.data.assignments.remove(a.ID)
		n++
	}
	return n, nil
}

// ============================================================================
// Salaries
// ============================================================================

func (tx *memTx) Salaries(_ context.Context, departmentID int64) ([]model.Salary, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	officers := tx.officerIDs(departmentID)
	return tx.data.salaries.list(func(s model.Salary) bool { return officers[s.OfficerID] }), nil
}

func (tx *memTx) Salary(_ context.Context, id int64) (model.Salary, error) {
	if err := tx.check(); err != nil {
		return model.Salary{}, err
	}
	return tx.data.salaries.get(id)
}

func (tx *memTx) InsertSalary(_ context.Context, s *model.Salary) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.data.officers.get(s.OfficerID); err != nil {
		return fkViolation("salaries", "officer_id", err)
	}
	id, err := tx.data.salaries.allocate(s.ID)
	if err != nil {
		return err
	}
	s.ID = id
	tx.data.salaries.put(id, *s)
	return nil
}

func (tx *memTx) UpdateSalary(_ context.Context, s model.Salary) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.data.officers.get(s.OfficerID); err != nil {
		return fkViolation("salaries", "officer_id", err)
	}
	return tx.data.salaries.replace(s.ID, s)
}

func (tx *memTx) DeleteSalary(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.data.salaries.remove(id)
}

// ============================================================================
// Incidents
// ============================================================================

func (tx *memTx) Incidents(_ context.Context, departmentID int64) ([]model.Incident, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	rows := tx.data.incidents.list(func(i model.Incident) bool { return i.DepartmentID == departmentID })
	for k := range rows {
		rows[k] = cloneIncident(rows[k])
	}
	return rows, nil
}

func (tx *memTx) Incident(_ context.Context, id int64) (model.Incident, error) {
	if err := tx.check(); err != nil {
		return model.Incident{}, err
	}
	i, err := tx.data.incidents.get(id)
	return cloneIncident(i), err
}

func (tx *memTx) InsertIncident(_ context.Context, i *model.Incident) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.incidentRefs(*i); err != nil {
		return err
	}
	id, err := tx.data.incidents.allocate(i.ID)
	if err != nil {
		return err
	}
	i.ID = id
	tx.data.incidents.put(id, cloneIncident(*i))
	return nil
}

func (tx *memTx) UpdateIncident(_ context.Context, i model.Incident) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.incidentRefs(i); err != nil {
		return err
	}
	return tx.data.incidents.replace(i.ID, cloneIncident(i))
}

func (tx *memTx) incidentRefs(i model.Incident) error {
	if _, err := tx.data.departments.get(i.DepartmentID); err != nil {
		return fkViolation("incidents", "department_id", err)
	}
	if i.AddressID.Valid {
		if _, err := tx.data.addresses.get(i.AddressID.Int64); err != nil {
			return fkViolation("incidents", "address_id", err)
		}
	}
	for _, id := range i.OfficerIDs {
		if _, err := tx.data.officers.get(id); err != nil {
			return fkViolation("incident_officers", "officer_id", err)
		}
	}
	for _, id := range i.PlateIDs {
		if _, err := tx.data.plates.get(id); err != nil {
			return fkViolation("incident_license_plates", "license_plate_id", err)
		}
	}
	return nil
}

func (tx *memTx) DeleteIncident(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.data.incidents.remove(id); err != nil {
		return err
	}
	for _, l := range tx.data.links.list(func(l model.Link) bool { return slices.Contains(l.IncidentIDs, id) }) {
		l.IncidentIDs = without(l.IncidentIDs, id)
		tx.data.links.put(l.ID, l)
	}
	return nil
}

// ============================================================================
// Links
// ============================================================================

func (tx *memTx) Links(_ context.Context, departmentID int64) ([]model.Link, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	officers := tx.officerIDs(departmentID)
	incidents := make(map[int64]bool)
	for _, i := range tx.data.incidents.list(func(i model.Incident) bool { return i.DepartmentID == departmentID }) {
		incidents[i.ID] = true
	}

	rows := tx.data.links.list(func(l model.Link) bool {
		for _, id := range l.OfficerIDs {
			if officers[id] {
				return true
			}
		}
		for _, id := range l.IncidentIDs {
			if incidents[id] {
				return true
			}
		}
		return false
	})
	for k := range rows {
		rows[k] = cloneLink(rows[k])
	}
	return rows, nil
}

func (tx *memTx) Link(_ context.Context, id int64) (model.Link, error) {
	if err := tx.check(); err != nil {
		return model.Link{}, err
	}
	l, err := tx.data.links.get(id)
	return cloneLink(l), err
}

func (tx *memTx) LinksByURL(_ context.Context, url string) ([]model.Link, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	rows := tx.data.links.list(func(l model.Link) bool { return l.URL == url })
	for k := range rows {
		rows[k] = cloneLink(rows[k])
	}
	return rows, nil
}

func (tx *memTx) InsertLink(_ context.Context, l *model.Link) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.linkRefs(*l); err != nil {
		return err
	}
	id, err := tx.data.links.allocate(l.ID)
	if err != nil {
		return err
	}
	l.ID = id
	tx.data.links.put(id, cloneLink(*l))
	return nil
}

func (tx *memTx) UpdateLink(_ context.Context, l model.Link) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.linkRefs(l); err != nil {
		return err
	}
	return tx.data.links.replace(l.ID, cloneLink(l))
}

func (tx *memTx) linkRefs(l model.Link) error {
	for _, id := range l.OfficerIDs {
		if _, err := tx.data.officers.get(id); err != nil {
			return fkViolation("officer_links", "officer_id", err)
		}
	}
	for _, id := range l.IncidentIDs {
		if _, err := tx.data.incidents.get(id); err != nil {
			return fkViolation("incident_links", "incident_id", err)
		}
	}
	return nil
}

func (tx *memTx) DeleteLink(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.data.links.remove(id)
}

// ============================================================================
// Addresses and plates
// ============================================================================

func (tx *memTx) FindAddress(_ context.Context, key model.AddressKey) (model.Address, error) {
	if err := tx.check(); err != nil {
		return model.Address{}, err
	}
	for _, a := range tx.data.addresses.list(nil) {
		if a.AddressKey.Equal(key) {
			return a, nil
		}
	}
	return model.Address{}, fmt.Errorf("address: %w", ErrNotFound)
}

func (tx *memTx) InsertAddress(_ context.Context, a *model.Address) error {
	if err := tx.check(); err != nil {
		return err
	}
	id, err := tx.data.addresses.allocate(a.ID)
	if err != nil {
		return err
	}
	a.ID = id
	tx.data.addresses.put(id, *a)
	return nil
}

func (tx *memTx) FindPlate(_ context.Context, key model.PlateKey) (model.Plate, error) {
	if err := tx.check(); err != nil {
		return model.Plate{}, err
	}
	for _, p := range tx.data.plates.list(nil) {
		if p.PlateKey.Equal(key) {
			return p, nil
		}
	}
	return model.Plate{}, fmt.Errorf("license plate %q: %w", key.Number, ErrNotFound)
}

func (tx *memTx) InsertPlate(_ context.Context, p *model.Plate) error {
	if err := tx.check(); err != nil {
		return err
	}
	id, err := tx.data.plates.allocate(p.ID)
	if err != nil {
		return err
	}
	p.ID = id
	tx.data.plates.put(id, *p)
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func cloneIncident(i model.Incident) model.Incident {
	i.OfficerIDs = slices.Clone(i.OfficerIDs)
	i.PlateIDs = slices.Clone(i.PlateIDs)
	return i
}

func cloneLink(l model.Link) model.Link {
	l.OfficerIDs = slices.Clone(l.OfficerIDs)
	l.IncidentIDs = slices.Clone(l.IncidentIDs)
	return l
}

func without(ids []int64, id int64) []int64 {
	return slices.DeleteFunc(slices.Clone(ids), func(v int64) bool { return v == id })
}

func fkViolation(tbl, column string, err error) error {
	return &core.IntegrityError{
		Op:  "write " + tbl,
		Err: fmt.Errorf("insert or update on table %q violates foreign key constraint on %s: %w", tbl, column, err),
	}
}

func uniqueViolation(tbl, constraint string) error {
	return &core.IntegrityError{
		Op:  "insert into " + tbl,
		Err: fmt.Errorf("duplicate key value violates unique constraint %q", constraint),
	}
}
