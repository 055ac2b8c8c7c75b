package core

// # Error Codes Reference
//
// Every error that aborts an import is mapped to a short message with a code
// operators can quote. Typed errors are mapped by type first; anything else is
// matched against text patterns.
//
// # Import Errors
//
//	SCH001 - Column mismatch: a file is missing required columns or has unknown ones
//	REF001 - Unresolved reference: a row names a partition, officer, unit, incident or token that does not exist
//	CNF001 - Static field conflict: an existing officer's static field would change
//	AMB001 - Ambiguous officer: name or badge matching found several officers
//	VAL001 - Invalid value: a cell could not be parsed
//	MOD001 - Mode refused: force-create was requested outside development or test
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key          Patterns: "duplicate key"
//	DB002 - Unique constraint      Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key            Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused     Patterns: "connection refused"
//	DB005 - Connection reset       Patterns: "connection reset"
//	DB006 - Timeout                Patterns: "timeout"
//	DB007 - Deadlock               Patterns: "deadlock"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found       Patterns: "no such file"
//	FILE002 - Invalid CSV          Patterns: "invalid csv"
//	FILE003 - Empty file           Patterns: "empty file"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled             Patterns: "context canceled"
//	RUN002 - Timed out             Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForceCreateRefused is returned when force-create runs outside development or test.
var ErrForceCreateRefused = errors.New("force-create mode refused: environment does not allow destructive imports")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What went wrong
	Action  string // What the operator should do
	Code    string // Support reference code
}

var (
	schemaMessage = UserMessage{
		Message: "An input file does not match its column layout",
		Action:  "Add the missing columns or remove the unknown ones and rerun",
		Code:    "SCH001",
	}
	referenceMessage = UserMessage{
		Message: "A row refers to something that does not exist",
		Action:  "Check the id, token or partition named in the error",
		Code:    "REF001",
	}
	conflictMessage = UserMessage{
		Message: "An officer's static field would change",
		Action:  "Correct the extract, or rerun with --update-static-fields if the change is intended",
		Code:    "CNF001",
	}
	ambiguousMessage = UserMessage{
		Message: "More than one officer matches a row",
		Action:  "Use officer ids instead of name matching for the officers named in the error",
		Code:    "AMB001",
	}
	fieldMessage = UserMessage{
		Message: "A value could not be read",
		Action:  "Fix the cell named in the error and rerun",
		Code:    "VAL001",
	}
	modeMessage = UserMessage{
		Message: "Force-create is only allowed in development and test environments",
		Action:  "Set APP_ENV to development or test, or import without --force-create",
		Code:    "MOD001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database errors
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Check the extract for repeated ids",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in the extract",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in the extract",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are imported first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are imported first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the database is running",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please rerun the import",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Make sure no other import is running and rerun",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Run errors (before the generic timeout pattern)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Nothing was committed; rerun when ready",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Raise IMPORT_TIMEOUT or split the extract",
			Code:    "RUN002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// File errors
	// =========================================================================
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Input file not found",
			Action:  "Check the file path flags",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "Input file is empty",
			Action:  "Provide a CSV file with a header row",
			Code:    "FILE003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Import error types are recognized through wrapping; everything else is
// matched against errorPatterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		schemaErr    *SchemaError
		refErr       *ReferenceError
		conflictErr  *ConflictError
		ambiguousErr *AmbiguousMatchError
		fieldErr     *FieldError
	)
	switch {
	case errors.As(err, &schemaErr):
		return schemaMessage
	case errors.As(err, &refErr):
		return referenceMessage
	case errors.As(err, &conflictErr):
		return conflictMessage
	case errors.As(err, &ambiguousErr):
		return ambiguousMessage
	case errors.As(err, &fieldErr):
		return fieldMessage
	case errors.Is(err, ErrForceCreateRefused):
		return modeMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
