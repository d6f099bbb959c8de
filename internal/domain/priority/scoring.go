package priority

import (
	"math"
	"time"

	"github.com/phrazzld/taskpilot/internal/domain"
)

// day is the unit used to measure distance to a due date.
const day = 24 * time.Hour

// Breakdown holds the three sub-scores of a task and their weighted total.
type Breakdown struct {
	Priority   int     `json:"priority"`
	Urgency    int     `json:"urgency"`
	Complexity int     `json:"complexity"`
	Score      float64 `json:"score"`
}

// priorityScore maps a priority level to its sub-score.
// An unset level counts as low; validation has already rejected unknown levels.
func priorityScore(level domain.PriorityLevel) int {
	switch level {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityMedium:
		return 2
	default:
		return 1
	}
}

// daysUntilDue returns ceil((dueAt - now) / 1 day). Negative values mean the
// task is overdue by at least a full day.
func daysUntilDue(dueAt, now time.Time) int {
	return int(math.Ceil(float64(dueAt.Sub(now)) / float64(day)))
}

// urgencyScore derives the urgency sub-score from the distance to the due date.
//
// Scale:
//   - no due date: 1
//   - overdue (days < 0): 5
//   - due today (days == 0): 4
//   - due tomorrow (days == 1): 3
//   - due in 2-3 days: 2
//   - later: 1
func urgencyScore(dueAt *time.Time, now time.Time) int {
	if dueAt == nil {
		return 1
	}

	days := daysUntilDue(*dueAt, now)
	switch {
	case days < 0:
		return 5
	case days == 0:
		return 4
	case days == 1:
		return 3
	case days <= 3:
		return 2
	default:
		return 1
	}
}

// complexityScore derives the complexity sub-score from the estimated
// duration in minutes.
func complexityScore(minutes int) int {
	switch {
	case minutes <= 30:
		return 1
	case minutes <= 60:
		return 2
	case minutes <= 120:
		return 3
	default:
		return 4
	}
}

// estimatedMinutes returns the task's estimate, or the configured default.
func estimatedMinutes(task *domain.Task, params *Params) int {
	if task.EstimatedDurationMinutes == nil {
		return params.DefaultDurationMinutes
	}
	return *task.EstimatedDurationMinutes
}

// scoreTask validates the task and computes its weighted score against now.
//
// The function is total for every valid snapshot: an unset priority counts as
// low, a missing due date as no urgency, and a missing duration as the default
// estimate. Contract violations (unknown priority, non-positive duration)
// return the *domain.InvalidTaskError produced by Task.Validate.
func scoreTask(task *domain.Task, now time.Time, params *Params) (Breakdown, error) {
	if err := task.Validate(); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		Priority:   priorityScore(task.Priority()),
		Urgency:    urgencyScore(task.DueAt, now),
		Complexity: complexityScore(estimatedMinutes(task, params)),
	}
	b.Score = params.PriorityWeight*float64(b.Priority) +
		params.UrgencyWeight*float64(b.Urgency) +
		params.ComplexityWeight*float64(b.Complexity)

	return b, nil
}
