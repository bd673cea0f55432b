package domain

import (
	"errors"
	"fmt"
)

// ErrAuthRequired blocks submission when no authenticated user is present.
var ErrAuthRequired = errors.New("authentication required")

// ErrNoActiveSession is returned when an operation targets a user with no
// open session.
var ErrNoActiveSession = errors.New("no active trade session")

// ValidationError covers locally recoverable input problems: empty or
// non-positive amounts, stakes over the available balance or outside the
// selected tier band. It never moves the session out of its current state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError reports an operation invoked in a state that does not allow
// it, e.g. submitting while a countdown is running.
type StateError struct {
	Op     string
	Status SessionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %q", e.Op, e.Status)
}

// ExecutionFailure wraps a failed remote execution call. The session
// reverts to idle with no debit applied; the caller may retry.
type ExecutionFailure struct {
	Err error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("trade execution failed: %v", e.Err)
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Err
}
