package core

// FileKind names one kind of input extract.
type FileKind string

const (
	KindOfficers    FileKind = "officers"
	KindAssignments FileKind = "assignments"
	KindSalaries    FileKind = "salaries"
	KindIncidents   FileKind = "incidents"
	KindLinks       FileKind = "links"
)

// Canonical column names shared by several files.
const (
	ColID              = "id"
	ColPartitionName   = "partition_name"
	ColPartitionRegion = "partition_region"
	ColOfficerID       = "officer_id"
	ColOfficerIDs      = "officer_ids"
)

// FileSpec declares the column contract of one kind of extract.
type FileSpec struct {
	Kind  FileKind
	Label string // Display name: "Officers"
	Order int    // Position in the run; lower runs first

	Required []string // Columns that must be present
	Optional []string // Columns that may be present
	Ignored  []string // Accepted for export symmetry, never read

	// Aliases maps alternate header names to canonical ones. Applied after
	// header normalization and before validation.
	Aliases map[string]string

	// Required columns that become optional in force-create mode.
	OptionalWhenForced []string
	// Required columns that become optional in assignment overwrite mode.
	OptionalWhenOverwriting []string
}

// SchemaMode selects the run modes that change a file's column contract.
type SchemaMode struct {
	ForceCreate          bool
	OverwriteAssignments bool
}

// Columns returns the required and allowed-but-optional column sets for mode.
func (s FileSpec) Columns(mode SchemaMode) (required, optional []string) {
	relaxed := make(map[string]bool)
	if mode.ForceCreate {
		for _, c := range s.OptionalWhenForced {
			relaxed[c] = true
		}
	}
	if mode.OverwriteAssignments {
		for _, c := range s.OptionalWhenOverwriting {
			relaxed[c] = true
		}
	}

	for _, c := range s.Required {
		if relaxed[c] {
			optional = append(optional, c)
		} else {
			required = append(required, c)
		}
	}
	optional = append(optional, s.Optional...)
	optional = append(optional, s.Ignored...)
	return required, optional
}

// HeaderIndex maps canonical column names to their position in the CSV row.
type HeaderIndex map[string]int
