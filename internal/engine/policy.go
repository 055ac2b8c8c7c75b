package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/rosterimport/internal/core"
)

// CreatePolicy decides what a row with a numeric id does.
type CreatePolicy int

const (
	// Incremental updates the row with that id in place.
	Incremental CreatePolicy = iota
	// ForceRecreate deletes the row with that id and inserts a replacement
	// carrying the same id. Unsafe under concurrent access; development and
	// test databases only.
	ForceRecreate
)

func (p CreatePolicy) String() string {
	switch p {
	case ForceRecreate:
		return "force-recreate"
	default:
		return "incremental"
	}
}

// AssignmentPolicy selects how the assignment file is applied.
type AssignmentPolicy int

const (
	// AssignmentIncremental adds assignments that do not exist yet.
	AssignmentIncremental AssignmentPolicy = iota
	// AssignmentOverwrite replaces every assignment of the officers named in
	// the file with exactly the file's rows.
	AssignmentOverwrite
)

func (p AssignmentPolicy) String() string {
	switch p {
	case AssignmentOverwrite:
		return "overwrite"
	default:
		return "incremental"
	}
}

// OfficerMatch selects how officer rows without a numeric id find an
// existing officer. The strategies never combine.
type OfficerMatch int

const (
	// MatchByID reuses an equivalent existing officer, otherwise creates one.
	MatchByID OfficerMatch = iota
	// MatchByName matches on exact first and last name.
	MatchByName
	// MatchByBadge matches on name, then on a badge found in any of the
	// candidates' assignments.
	MatchByBadge
)

func (m OfficerMatch) String() string {
	switch m {
	case MatchByName:
		return "name"
	case MatchByBadge:
		return "badge"
	default:
		return "id"
	}
}

// Options configure one engine.
type Options struct {
	PartitionName   string
	PartitionRegion string

	Create      CreatePolicy
	Assignments AssignmentPolicy
	Match       OfficerMatch

	// NoCreate turns an officer row that matches nothing into an error.
	NoCreate bool
	// AllowStaticUpdates lets static officer fields change value.
	AllowStaticUpdates bool

	// ForceCreateAllowed must be set for ForceRecreate to run.
	ForceCreateAllowed bool

	// ProgressEvery logs progress after this many rows of a file.
	ProgressEvery int
}

// SchemaMode returns the column-contract mode these options imply.
func (o Options) SchemaMode() core.SchemaMode {
	return core.SchemaMode{
		ForceCreate:          o.Create == ForceRecreate,
		OverwriteAssignments: o.Assignments == AssignmentOverwrite,
	}
}

// Validate rejects option combinations the engine cannot honor.
func (o Options) Validate() error {
	var errs []error

	if strings.TrimSpace(o.PartitionName) == "" {
		errs = append(errs, errors.New("partition name is required"))
	}
	if strings.TrimSpace(o.PartitionRegion) == "" {
		errs = append(errs, errors.New("partition region is required"))
	}
	if o.Create == ForceRecreate && !o.ForceCreateAllowed {
		errs = append(errs, core.ErrForceCreateRefused)
	}
	if o.Create == ForceRecreate && o.Match != MatchByID {
		errs = append(errs, fmt.Errorf("officer matching by %s cannot be combined with force-create", o.Match))
	}
	if o.ProgressEvery < 0 {
		errs = append(errs, errors.New("progress interval must not be negative"))
	}

	return errors.Join(errs...)
}

// action is what a single row does to its entity.
type action int

const (
	actCreate  action = iota // insert a new row, or reuse an equivalent one
	actUpdate                // update the row with the given id
	actReplace               // delete the row with the given id, insert it again
)

// planner maps a row's id to an action. Chosen once per run from the
// CreatePolicy.
type planner interface {
	plan(ref Ref) action
}

type incrementalPlanner struct{}

func (incrementalPlanner) plan(ref Ref) action {
	if _, ok := ref.ID(); ok {
		return actUpdate
	}
	return actCreate
}

type forcePlanner struct{}

func (forcePlanner) plan(ref Ref) action {
	if _, ok := ref.ID(); ok {
		return actReplace
	}
	return actCreate
}

func plannerFor(p CreatePolicy) planner {
	if p == ForceRecreate {
		return forcePlanner{}
	}
	return incrementalPlanner{}
}
