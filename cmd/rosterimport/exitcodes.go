package main

import (
	"errors"

	"github.com/JonMunkholm/rosterimport/internal/core"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2 // bad columns or cell values
	exitUsage      = 3
	exitDB         = 4
	exitReference  = 5
	exitConflict   = 6 // static field conflict or ambiguous officer match
	exitIntegrity  = 7
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// exitCode picks the process exit code. An explicit code wins, then the
// kind of the underlying import error.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}

	var (
		schema    *core.SchemaError
		field     *core.FieldError
		ref       *core.ReferenceError
		conflict  *core.ConflictError
		ambiguous *core.AmbiguousMatchError
		integrity *core.IntegrityError
	)
	switch {
	case errors.As(err, &schema), errors.As(err, &field):
		return exitValidation
	case errors.As(err, &ref):
		return exitReference
	case errors.As(err, &conflict), errors.As(err, &ambiguous):
		return exitConflict
	case errors.As(err, &integrity):
		return exitIntegrity
	case errors.Is(err, core.ErrForceCreateRefused):
		return exitUsage
	default:
		return 1
	}
}
