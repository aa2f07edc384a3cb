package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type category int

const (
	categoryUnknown category = iota
	categoryNotFound
	categoryConflict
	categoryUnavailable
)

// Error implements repositories.RepositoryError for Firestore backed repositories.
type Error struct {
	op       string
	err      error
	category category
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing or foreign document.
func (e *Error) IsNotFound() bool { return e != nil && e.category == categoryNotFound }

// IsConflict reports whether a precondition or compare-and-swap failed.
func (e *Error) IsConflict() bool { return e != nil && e.category == categoryConflict }

// IsUnavailable reports whether the backend is temporarily unreachable.
func (e *Error) IsUnavailable() bool { return e != nil && e.category == categoryUnavailable }

// NotFound builds a not-found error for conditions detected by repository code, such as an
// order owned by another buyer.
func NotFound(op string, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), category: categoryNotFound}
}

// Conflict builds a conflict error for failed application-level preconditions.
func Conflict(op string, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), category: categoryConflict}
}

func categorise(code codes.Code) category {
	switch code {
	case codes.NotFound:
		return categoryNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return categoryConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return categoryUnavailable
	default:
		return categoryUnknown
	}
}

// WrapError annotates Firestore errors with repository semantics. Context cancellations pass
// through untouched.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var repoErr *Error
	if errors.As(err, &repoErr) {
		if repoErr.op == "" {
			repoErr.op = op
		}
		return repoErr
	}
	return &Error{op: op, err: err, category: categorise(code)}
}
