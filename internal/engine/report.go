package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/rosterimport/internal/model"
)

// Entity names used as report keys. Dimension and lookup rows are counted
// alongside the file kinds.
const (
	EntityOfficers    = "officers"
	EntityAssignments = "assignments"
	EntitySalaries    = "salaries"
	EntityIncidents   = "incidents"
	EntityLinks       = "links"
	EntityJobs        = "jobs"
	EntityUnits       = "units"
	EntityAddresses   = "addresses"
	EntityPlates      = "plates"
)

// Counts are the per-entity counters of a run.
type Counts struct {
	Processed int // rows read from the entity's file
	Created   int
	Updated   int // rows whose stored values changed
	Unchanged int // matched rows that already held the incoming values
	Deleted   int
	Skipped   int // duplicates of an existing row
}

// StaticChange records an override of a static officer field.
type StaticChange struct {
	OfficerID int64
	Field     string
	Old       string
	New       string
}

// Entry is one change made by the run.
type Entry struct {
	Entity string
	Action string // created, updated, deleted
	ID     int64
	File   string
	Line   int
}

// Report is the result of one run. It is owned by that run only.
type Report struct {
	RunID      string
	Department model.Department
	Started    time.Time
	Finished   time.Time
	Committed  bool

	counts  map[string]*Counts
	Changes []StaticChange
	Entries []Entry
}

func newReport(runID string) *Report {
	return &Report{
		RunID:   runID,
		Started: time.Now(),
		counts:  make(map[string]*Counts),
	}
}

func (r *Report) c(entity string) *Counts {
	c, ok := r.counts[entity]
	if !ok {
		c = &Counts{}
		r.counts[entity] = c
	}
	return c
}

// Counts returns the counters of one entity.
func (r *Report) Counts(entity string) Counts {
	if c, ok := r.counts[entity]; ok {
		return *c
	}
	return Counts{}
}

// Entities returns every entity with counters, sorted.
func (r *Report) Entities() []string {
	names := make([]string, 0, len(r.counts))
	for name := range r.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalCreated sums Created over all entities.
func (r *Report) TotalCreated() int {
	n := 0
	for _, c := range r.counts {
		n += c.Created
	}
	return n
}

// TotalUpdated sums Updated over all entities.
func (r *Report) TotalUpdated() int {
	n := 0
	for _, c := range r.counts {
		n += c.Updated
	}
	return n
}

func (r *Report) processed(entity string) { r.c(entity).Processed++ }
func (r *Report) unchanged(entity string) { r.c(entity).Unchanged++ }
func (r *Report) skipped(entity string)   { r.c(entity).Skipped++ }

func (r *Report) created(entity string, id int64, file string, line int) {
	r.c(entity).Created++
	r.Entries = append(r.Entries, Entry{Entity: entity, Action: "created", ID: id, File: file, Line: line})
}

func (r *Report) updated(entity string, id int64, file string, line int) {
	r.c(entity).Updated++
	r.Entries = append(r.Entries, Entry{Entity: entity, Action: "updated", ID: id, File: file, Line: line})
}

func (r *Report) deleted(entity string, id int64, file string, line int) {
	r.c(entity).Deleted++
	r.Entries = append(r.Entries, Entry{Entity: entity, Action: "deleted", ID: id, File: file, Line: line})
}

func (r *Report) deletedMany(entity string, n int64) {
	r.c(entity).Deleted += int(n)
}

func (r *Report) staticChange(ch StaticChange) {
	r.Changes = append(r.Changes, ch)
}

// Summary renders the counters one entity per line.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, name := range r.Entities() {
		c := r.counts[name]
		fmt.Fprintf(&b, "%-12s processed=%d created=%d updated=%d unchanged=%d deleted=%d skipped=%d\n",
			name, c.Processed, c.Created, c.Updated, c.Unchanged, c.Deleted, c.Skipped)
	}
	if len(r.Changes) > 0 {
		fmt.Fprintf(&b, "static field changes: %d\n", len(r.Changes))
	}
	return b.String()
}
