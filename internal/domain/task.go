package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PriorityLevel is the author-assigned ordinal importance of a task.
// The empty value means the priority was never set.
type PriorityLevel string

// Possible priority level values
const (
	PriorityUnset  PriorityLevel = ""
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusMissed     TaskStatus = "missed"
)

// DefaultDurationMinutes is assumed when a task carries no estimate.
const DefaultDurationMinutes = 30

// Task is a snapshot of a user's task as supplied by the external store.
// The engine never persists it; it only reads it and proposes transitions.
type Task struct {
	ID                       uuid.UUID     `json:"id"`
	UserID                   uuid.UUID     `json:"user_id"`
	Title                    string        `json:"title"`
	Description              string        `json:"description,omitempty"`
	PriorityLevel            PriorityLevel `json:"priority_level,omitempty"`
	DueAt                    *time.Time    `json:"due_at,omitempty"`
	EstimatedDurationMinutes *int          `json:"estimated_duration_minutes,omitempty"`
	Status                   TaskStatus    `json:"status"`
	RescheduleCount          int           `json:"reschedule_count"`
	LastEvaluatedAt          *time.Time    `json:"last_evaluated_at,omitempty"`
}

// Validate checks the task's hard invariants.
// Returns an *InvalidTaskError naming the offending field if any check fails.
// An absent priority, due date or duration is valid.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewInvalidTaskError(t.ID, "id", ErrEmptyTaskID)
	}

	if !isValidTaskStatus(t.Status) {
		return NewInvalidTaskError(t.ID, "status",
			fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status))
	}

	if t.PriorityLevel != PriorityUnset && !isValidPriorityLevel(t.PriorityLevel) {
		return NewInvalidTaskError(t.ID, "priority_level",
			fmt.Errorf("%w: %q", ErrInvalidPriority, t.PriorityLevel))
	}

	if t.EstimatedDurationMinutes != nil && *t.EstimatedDurationMinutes < 1 {
		return NewInvalidTaskError(t.ID, "estimated_duration_minutes",
			fmt.Errorf("%w: got %d", ErrInvalidDuration, *t.EstimatedDurationMinutes))
	}

	if t.RescheduleCount < 0 {
		return NewInvalidTaskError(t.ID, "reschedule_count", ErrInvalidRescheduleCount)
	}

	return nil
}

// Priority returns the task's priority level, defaulting to low when unset.
func (t *Task) Priority() PriorityLevel {
	if t.PriorityLevel == PriorityUnset {
		return PriorityLow
	}
	return t.PriorityLevel
}

// Duration returns the estimated duration in minutes, defaulting to
// DefaultDurationMinutes when unset.
func (t *Task) Duration() int {
	if t.EstimatedDurationMinutes == nil {
		return DefaultDurationMinutes
	}
	return *t.EstimatedDurationMinutes
}

// IsTerminal reports whether the task is completed or cancelled.
// Terminal tasks are never scored, scheduled or rescheduled.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}

// IsSchedulable reports whether the task takes part in a scheduling pass.
func (t *Task) IsSchedulable() bool {
	switch t.Status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusMissed:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the task so callers can propose changes
// without touching the caller-owned snapshot.
func (t *Task) Clone() *Task {
	clone := *t
	if t.DueAt != nil {
		due := *t.DueAt
		clone.DueAt = &due
	}
	if t.EstimatedDurationMinutes != nil {
		minutes := *t.EstimatedDurationMinutes
		clone.EstimatedDurationMinutes = &minutes
	}
	if t.LastEvaluatedAt != nil {
		evaluated := *t.LastEvaluatedAt
		clone.LastEvaluatedAt = &evaluated
	}
	return &clone
}

// ParsePriorityLevel converts user input into a PriorityLevel.
// Matching is case-insensitive and an empty string yields PriorityUnset.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	level := PriorityLevel(strings.ToLower(strings.TrimSpace(s)))
	if level == PriorityUnset || isValidPriorityLevel(level) {
		return level, nil
	}
	return PriorityUnset, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// ParseTaskStatus converts user input into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if isValidTaskStatus(status) {
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// isValidPriorityLevel checks if the given level is one of the defined levels.
func isValidPriorityLevel(level PriorityLevel) bool {
	switch level {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusCancelled, TaskStatusMissed:
		return true
	default:
		return false
	}
}
