package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("version conflict")
)
