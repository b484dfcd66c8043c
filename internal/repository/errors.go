package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional write matched no row because
	// the entity is no longer in the expected state.
	ErrConflict = errors.New("entity state changed")

	// ErrConstraint is returned when the store rejects a write as malformed
	// (check, not-null or type violations).
	ErrConstraint = errors.New("constraint violation")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate entity")
)
