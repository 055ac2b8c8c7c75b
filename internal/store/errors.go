package store

import "errors"

var (
	// ErrNotFound keeps lookups consistent across the memory and Postgres stores.
	ErrNotFound = errors.New("record not found")

	// ErrTxDone is returned when a committed or rolled back Tx is used.
	ErrTxDone = errors.New("transaction already closed")
)
