package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskpilot/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// The API layer maps them to HTTP status codes.
var (
	// ErrScheduleUnavailable indicates that a user's schedule could not be
	// computed. It always wraps the cause, usually a *domain.InvalidTaskError
	// naming the offending task.
	ErrScheduleUnavailable = errors.New("schedule could not be computed")

	// ErrTaskNotFound indicates that a task referenced by an operation does not exist.
	ErrTaskNotFound = errors.New("task not found")
)

// ServiceError wraps unexpected failures of a service operation.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err for the given service operation.
// Store-level not-found errors are translated to ErrTaskNotFound and
// returned without wrapping.
func NewServiceError(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return &ServiceError{Service: service, Op: op, Err: err}
}
