package services

import (
	"errors"
	"fmt"

	"github.com/bazaar-mobile/api/internal/repositories"
)

var (
	// ErrValidation signals the caller supplied data that cannot be processed as given.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPaymentTiming indicates deferred payment was requested without on-order items.
	ErrInvalidPaymentTiming = fmt.Errorf("%w: invalid payment timing", ErrValidation)
	// ErrIllegalTransition indicates the requested status is not a direct successor of the current one.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrForbidden indicates the caller may not perform the requested change.
	ErrForbidden = errors.New("forbidden")
	// ErrTotalsMismatch indicates recomputed totals disagree with the stored total.
	ErrTotalsMismatch = errors.New("totals mismatch")
	// ErrNotFound indicates the order or its tracking data is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
)

// RepositoryFailure wraps a collaborator failure with the operation that produced it.
type RepositoryFailure struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *RepositoryFailure) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Op + ": repository failure"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying collaborator error.
func (e *RepositoryFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// mapRepositoryError converts categorised repository errors into service errors. A conflict on a
// status write means another caller moved the order first.
func mapRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s: %v", ErrIllegalTransition, op, err)
		}
	}

	return &RepositoryFailure{Op: op, Err: err}
}
