// Package metrics records operational metrics of import runs behind a small
// backend interface.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete metric systems live in subpackages.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names understood by backends.
const (
	StepTotal    = "rosterimport_step_total"
	StepDuration = "rosterimport_step_duration_seconds"
	RowsTotal    = "rosterimport_rows_total"
	RunsTotal    = "rosterimport_runs_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil restores the no-op one.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one file pass of a run and its duration.
func RecordStep(step string, err error, d time.Duration) {
	lbls := Labels{"step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter of an entity and outcome
// (processed, created, updated, unchanged, deleted, skipped).
func RecordRows(entity, outcome string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"entity": entity, "outcome": outcome})
}

// RecordRun counts a finished run by outcome.
func RecordRun(err error) {
	current().IncCounter(RunsTotal, 1, Labels{"status": status(err)})
}
