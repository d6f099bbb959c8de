package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
)

// Transition is a persisted reschedule outcome: a task moving to missed with
// an incremented reschedule count.
//
// ExpectedRescheduleCount is the count the transition was computed from. A
// store must refuse to apply it when the stored count differs, which is what
// keeps two overlapping runs from incrementing the same miss twice.
type Transition struct {
	TaskID                  uuid.UUID
	UserID                  uuid.UUID
	Status                  domain.TaskStatus
	ExpectedRescheduleCount int
	NewRescheduleCount      int
	EvaluatedAt             time.Time
}

// Validate checks that the transition describes a legal state change.
func (t Transition) Validate() error {
	if t.TaskID == uuid.Nil {
		return fmt.Errorf("%w: transition has no task id", ErrInvalidEntity)
	}
	if t.Status != domain.TaskStatusMissed {
		return fmt.Errorf("%w: transition to %q is not supported", ErrInvalidEntity, t.Status)
	}
	if t.NewRescheduleCount != t.ExpectedRescheduleCount+1 {
		return fmt.Errorf("%w: reschedule count must grow by one, got %d -> %d",
			ErrInvalidEntity, t.ExpectedRescheduleCount, t.NewRescheduleCount)
	}
	if t.EvaluatedAt.IsZero() {
		return errors.Join(ErrInvalidEntity, errors.New("transition has no evaluation time"))
	}
	return nil
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create inserts a new task. The task must pass domain validation.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListSchedulable returns the user's pending, in-progress and missed tasks.
	// Order is unspecified; callers rank them.
	ListSchedulable(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)

	// ListRescheduleCandidates returns the user's pending and in-progress
	// tasks whose due date is before now.
	ListRescheduleCandidates(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Task, error)

	// ListUsersWithOverdueTasks returns the distinct users owning at least one
	// pending or in-progress task whose due date is before now.
	ListUsersWithOverdueTasks(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// ApplyTransition persists a reschedule outcome.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrStaleTransition if the stored task no longer matches the snapshot
	// the transition was computed from.
	ApplyTransition(ctx context.Context, transition Transition) error

	// ApplyReslot moves a missed task back to pending with a new due date.
	// The update only applies while the task is still missed with the
	// reschedule count the caller read; otherwise it returns
	// ErrStaleTransition, or ErrTaskNotFound when the task is gone.
	ApplyReslot(ctx context.Context, taskID uuid.UUID, expectedRescheduleCount int, newDueAt time.Time) error

	// SaveRanking stores the position of each task in the user's latest
	// schedule. ids must be in rank order, highest priority first.
	SaveRanking(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, evaluatedAt time.Time) error

	// WithTx returns a TaskStore that runs every operation inside tx.
	//
	// Example usage:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       return taskStore.WithTx(tx).ApplyTransition(ctx, transition)
	//   })
	WithTx(tx *sql.Tx) TaskStore
}
