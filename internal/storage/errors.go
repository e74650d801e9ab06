package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record, or the run it references, does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a (symbol, date) bar, a run ID or a
	// (run, row) result already exists. Stores are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
