package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is the root of every "missing row" error.
	ErrNotFound = errors.New("not found")

	// ErrTaskExists is returned when a task id is already taken.
	ErrTaskExists = errors.New("task already exists")

	// ErrInvalidEntity wraps validation and constraint failures.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConflict means a row changed between being read and being written.
	ErrConflict = errors.New("concurrent modification")

	ErrTransactionFailed = errors.New("transaction failed")

	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrStaleTransition is returned when a transition was computed from a
	// snapshot that another run has already moved on from.
	ErrStaleTransition = fmt.Errorf("%w: task changed since it was evaluated", ErrConflict)
)

// IsNotFoundError reports whether err is any kind of not found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError reports whether err is a concurrent modification.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// TaskError attaches the failing operation and task to a store error.
type TaskError struct {
	Op     string
	TaskID uuid.UUID
	Err    error
}

func (e *TaskError) Error() string {
	if e.TaskID == uuid.Nil {
		return fmt.Sprintf("task %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("task %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError wraps err with the operation and task it failed on.
func NewTaskError(op string, taskID uuid.UUID, err error) *TaskError {
	return &TaskError{Op: op, TaskID: taskID, Err: err}
}
