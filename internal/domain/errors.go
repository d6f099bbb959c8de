// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTask is the root of every task invariant violation.
	// It is always wrapped in an *InvalidTaskError carrying the task ID.
	ErrInvalidTask = fmt.Errorf("%w: invalid task", ErrValidation)

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")
)

// Task field violations. Each is wrapped by an *InvalidTaskError.
var (
	ErrEmptyTaskID            = errors.New("task ID cannot be empty")
	ErrDuplicateTaskID        = errors.New("task ID appears more than once in the batch")
	ErrInvalidDuration        = errors.New("estimated duration must be at least 1 minute")
	ErrInvalidPriority        = errors.New("invalid priority level")
	ErrInvalidStatus          = errors.New("invalid task status")
	ErrInvalidRescheduleCount = errors.New("reschedule count cannot be negative")
)

// InvalidTaskError reports a task snapshot that violates a hard invariant.
// It is surfaced to callers with the offending task identifier and is never
// silently corrected.
type InvalidTaskError struct {
	TaskID uuid.UUID // The offending task
	Field  string    // The field that failed validation
	Err    error     // The specific violation, e.g. ErrInvalidDuration
}

// NewInvalidTaskError creates an InvalidTaskError for the given task and field.
func NewInvalidTaskError(taskID uuid.UUID, field string, err error) *InvalidTaskError {
	return &InvalidTaskError{
		TaskID: taskID,
		Field:  field,
		Err:    err,
	}
}

// Error implements the error interface for InvalidTaskError.
func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %s: %s: %v", e.TaskID, e.Field, e.Err)
}

// Unwrap exposes both the specific violation and ErrInvalidTask, so that
// errors.Is works against either.
func (e *InvalidTaskError) Unwrap() []error {
	return []error{e.Err, ErrInvalidTask}
}

// AsInvalidTask extracts an *InvalidTaskError from an error chain.
func AsInvalidTask(err error) (*InvalidTaskError, bool) {
	var invalid *InvalidTaskError
	if errors.As(err, &invalid) {
		return invalid, true
	}
	return nil, false
}
