package storage

import "errors"

// Storage errors shared by the vector and chart row stores.
var (
	// ErrNotFound is returned when no vector or report matches the key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a vector or chart row with the same
	// key is already stored. Stored results are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: stored results are append-only")

	// ErrInvalidInput is returned for nil records, empty keys and values the
	// schema rejects.
	ErrInvalidInput = errors.New("invalid input")
)
