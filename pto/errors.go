/*
errors.go - Error taxonomy for the PTO core

PURPOSE:
  All failure kinds a caller can distinguish, in one place. The API layer
  maps these onto HTTP statuses; nothing in this package knows about HTTP.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, rejected before any write
  2. Not-found errors   - missing OR unowned entities (ownership hiding)
  3. Transition errors  - lifecycle precondition failures
  4. Storage errors     - the store itself failed; multi-statement
                          operations roll back fully

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, pto.ErrNotFound) { ... }

    var tr *pto.InvalidTransitionError
    if errors.As(err, &tr) { log(tr.Current) }
*/
package pto

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input, e.g. an inverted date
	// range. Nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an entity is missing OR owned by a
	// different employee. The two cases are deliberately indistinguishable
	// so that probing cannot reveal which request ids exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a lifecycle precondition fails,
	// e.g. cancelling a request that is no longer pending.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports a refused status change. Current is the
// status actually observed, surfaced so the caller can tell the user why.
type InvalidTransitionError struct {
	RequestID int64
	Current   Status
	Attempted Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %d: only %q requests can become %q, current status: %q",
		e.RequestID, StatusPending, e.Attempted, e.Current)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition)
}
