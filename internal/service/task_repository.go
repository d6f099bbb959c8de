package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/store"
)

// TaskRepository defines the repository interface for the service layer.
// It is the subset of store.TaskStore the services use, plus access to the
// database for transactions.
type TaskRepository interface {
	// ListSchedulable returns the user's pending, in-progress and missed tasks
	ListSchedulable(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)

	// ListRescheduleCandidates returns the user's open tasks due before now
	ListRescheduleCandidates(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Task, error)

	// GetByID loads a single task
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ApplyTransition persists a reschedule outcome
	ApplyTransition(ctx context.Context, transition store.Transition) error

	// ApplyReslot moves a missed task back to pending with a new due date
	ApplyReslot(ctx context.Context, taskID uuid.UUID, expectedRescheduleCount int, newDueAt time.Time) error

	// SaveRanking stores the user's latest schedule
	SaveRanking(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, evaluatedAt time.Time) error

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) TaskRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}
