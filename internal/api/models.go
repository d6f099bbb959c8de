package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
)

// MaxBatchSize bounds the number of tasks accepted by POST /api/schedule.
const MaxBatchSize = 10000

// Requests omitting "now" are evaluated against the server clock.
// A task without a status is treated as pending.

// ScoreRequest defines the payload for POST /api/score.
type ScoreRequest struct {
	Task *domain.Task `json:"task"          validate:"required"`
	Now  *time.Time   `json:"now,omitempty"`
}

// ScoreResponse carries a task's score and its sub-scores.
type ScoreResponse struct {
	TaskID      uuid.UUID          `json:"task_id"`
	Score       float64            `json:"score"`
	Breakdown   priority.Breakdown `json:"breakdown"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// ScheduleRequest defines the payload for POST /api/schedule.
type ScheduleRequest struct {
	Tasks []domain.Task `json:"tasks"         validate:"required,max=10000"`
	Now   *time.Time    `json:"now,omitempty"`
}

// ScheduleResponse lists the schedulable task IDs, highest priority first.
type ScheduleResponse struct {
	TaskIDs     []uuid.UUID `json:"task_ids"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// EvaluateRescheduleRequest defines the payload for POST /api/reschedule/evaluate.
type EvaluateRescheduleRequest struct {
	Task      *domain.Task `json:"task"                validate:"required"`
	Now       *time.Time   `json:"now,omitempty"`
	Threshold *int         `json:"threshold,omitempty" validate:"omitempty,min=1"`
}

// EvaluateRescheduleResponse is the reschedule decision for a task.
type EvaluateRescheduleResponse struct {
	priority.Decision
	Threshold   int       `json:"threshold"`
	Escalated   bool      `json:"escalated"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ReslotRequest defines the payload for POST /api/reschedule/reslot.
// Threshold overrides the configured reschedule threshold, as it does for
// evaluation, when deciding whether the task is escalated.
type ReslotRequest struct {
	Task      *domain.Task `json:"task"                validate:"required"`
	NewDueAt  *time.Time   `json:"new_due_at"          validate:"required"`
	Now       *time.Time   `json:"now,omitempty"`
	Threshold *int         `json:"threshold,omitempty" validate:"omitempty,min=1"`
}

// TaskReslotRequest defines the payload for
// POST /api/users/{id}/tasks/{taskID}/reslot.
type TaskReslotRequest struct {
	NewDueAt *time.Time `json:"new_due_at" validate:"required"`
}

// TriggerResponse acknowledges a queued reschedule run.
type TriggerResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
