package service

import (
	"errors"
	"fmt"

	"booking/internal/repository"
)

var (
	// ErrValidation is returned when input is malformed or rejected by the store.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInvitation is returned when an invitation token cannot be redeemed.
	ErrInvalidInvitation = errors.New("invalid or expired invitation")

	// ErrOwnerNotFound is returned when an owner account is missing or is not an owner.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrInvalidTransition is returned when an order status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentUpdate is returned when an order kept changing while a
	// patch was being applied.
	ErrConcurrentUpdate = errors.New("order modified concurrently")

	// ErrPersistence is returned when the store fails for reasons unrelated to input.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries a client-facing detail and matches ErrValidation.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Detail
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationError(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// storeError classifies a repository error. Not-found and the service's own
// sentinels pass through; constraint violations become ErrValidation; anything
// else is a persistence failure.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidInvitation),
		errors.Is(err, ErrOwnerNotFound),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConcurrentUpdate),
		errors.Is(err, ErrPersistence):
		return err
	case errors.Is(err, repository.ErrConstraint), errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s: %v", ErrValidation, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
}
