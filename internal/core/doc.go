// Package core provides the file-level logic of a roster import: reading
// extracts, checking their columns and parsing their cells.
//
// # File Registry
//
// Each kind of extract (officers, assignments, salaries, incidents, links) is
// registered at init time with a [FileSpec] describing its required, optional
// and ignored columns and the header aliases older exports use:
//
//	core.Register(FileSpec{
//	    Kind:     KindSalaries,
//	    Required: []string{"id", "officer_id", "amount", "year"},
//	    Optional: []string{"overtime_amount", "is_fiscal_year"},
//	    Aliases:  map[string]string{"salary": "amount"},
//	})
//
// # Reading
//
// [ReadFile] loads a whole file, strips the BOM, repairs invalid UTF-8 and
// canonicalizes the header. [ValidateColumns] must pass before any row of the
// file is looked at.
//
// # Parsing
//
// The Parse* functions distinguish a blank cell (absent) from a present value,
// including an explicit zero. Unparseable cells are a [FieldError].
//
// # Error Handling
//
// The error types an import can fail with live here ([SchemaError],
// [ReferenceError], [ConflictError], [AmbiguousMatchError], [IntegrityError]).
// [MapError] turns any of them into a coded [UserMessage].
package core
