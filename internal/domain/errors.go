package domain

import "errors"

// The closed error set exposed by the run lifecycle and store. Callers
// classify failures with errors.Is; anything not in this set is a bug.
var (
	// ErrInvalidState signals an operation disallowed in the run's current
	// status, e.g. mutating a non-draft run or approving a draft.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound signals a missing run, record, employee or pay group.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals an optimistic-concurrency collision on the run
	// row. The operation may be retried.
	ErrConflict = errors.New("conflict")

	// ErrValidation signals bad input: negative gross, unknown
	// jurisdiction, missing compensation basis, and the like.
	ErrValidation = errors.New("validation error")

	// ErrInternal signals an engine or store defect, such as a failed
	// balance check. Never caused by user input.
	ErrInternal = errors.New("internal error")
)
