package priority

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
)

// Outcome is the result class of a reschedule evaluation.
type Outcome string

// Possible outcomes
const (
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeMissed            Outcome = "missed"
	OutcomeNeedsUserDecision Outcome = "needs_user_decision"
)

// Reason explains why an evaluation produced its outcome.
type Reason string

// Possible reasons
const (
	ReasonTerminal         Reason = "terminal"
	ReasonNoDueDate        Reason = "no_due_date"
	ReasonNotDue           Reason = "not_due"
	ReasonAwaitingSlot     Reason = "awaiting_slot"
	ReasonAwaitingDecision Reason = "awaiting_decision"
	ReasonDuePointPassed   Reason = "due_point_passed"
	ReasonThresholdReached Reason = "threshold_reached"
	ReasonInvalidTask      Reason = "invalid_task"
)

// SlotUrgency is the urgency class the slot finder is asked to honour when
// proposing a new due date for a missed task.
type SlotUrgency string

// Possible slot urgencies
const (
	SlotUrgencyToday    SlotUrgency = "today"
	SlotUrgencySoon     SlotUrgency = "soon"
	SlotUrgencyFlexible SlotUrgency = "flexible"
)

// SlotRequest signals that a missed task needs a new due date.
// The engine never picks the slot itself.
type SlotRequest struct {
	TaskID    uuid.UUID   `json:"task_id"`
	Urgency   SlotUrgency `json:"urgency"`
	NotBefore time.Time   `json:"not_before"`
}

// Decision is the outcome of evaluating one task for rescheduling.
// Decisions are plain data; "missed" and "needs user decision" are expected
// steady-state results, never errors.
type Decision struct {
	TaskID                  uuid.UUID    `json:"task_id"`
	Outcome                 Outcome      `json:"outcome"`
	Reason                  Reason       `json:"reason"`
	PreviousRescheduleCount int          `json:"previous_reschedule_count"`
	NewRescheduleCount      int          `json:"new_reschedule_count"`
	Slot                    *SlotRequest `json:"slot,omitempty"`
}

// Changed reports whether the decision proposes a state transition.
func (d Decision) Changed() bool {
	return d.Outcome != OutcomeUnchanged
}

// Apply returns a copy of task with the decision's proposed transition applied.
// The original snapshot is left untouched.
func (d Decision) Apply(task *domain.Task) *domain.Task {
	updated := task.Clone()
	if d.Changed() {
		updated.Status = domain.TaskStatusMissed
		updated.RescheduleCount = d.NewRescheduleCount
	}
	return updated
}

// IsEscalated reports whether a task has been handed to its user: it is
// missed and its reschedule count has passed the threshold.
func IsEscalated(task *domain.Task, threshold int) bool {
	return task.Status == domain.TaskStatusMissed && task.RescheduleCount > threshold
}

// slotUrgencyFor maps a task's priority to the urgency class of its next slot.
func slotUrgencyFor(level domain.PriorityLevel) SlotUrgency {
	switch level {
	case domain.PriorityHigh:
		return SlotUrgencyToday
	case domain.PriorityMedium:
		return SlotUrgencySoon
	default:
		return SlotUrgencyFlexible
	}
}

// evaluateReschedule decides whether a task has crossed its due point.
//
// State machine:
//   - pending/in_progress past due, count < threshold: missed, count + 1, slot requested
//   - pending/in_progress past due, count >= threshold: needs user decision, count + 1
//   - missed: unchanged, whatever now is, so repeated evaluation never double counts
//   - completed/cancelled, no due date, or not yet due: unchanged
//   - a snapshot failing domain validation: unchanged, never counted as a miss
//
// Escalation also increments the count, so an escalated task is recognisable
// from its snapshot alone: missed with a count above the threshold.
func evaluateReschedule(task *domain.Task, now time.Time, threshold int) Decision {
	d := Decision{
		TaskID:                  task.ID,
		Outcome:                 OutcomeUnchanged,
		PreviousRescheduleCount: task.RescheduleCount,
		NewRescheduleCount:      task.RescheduleCount,
	}

	switch {
	case task.Validate() != nil:
		d.Reason = ReasonInvalidTask
		return d
	case task.IsTerminal():
		d.Reason = ReasonTerminal
		return d
	case task.Status == domain.TaskStatusMissed:
		d.Reason = ReasonAwaitingSlot
		if IsEscalated(task, threshold) {
			d.Reason = ReasonAwaitingDecision
		}
		return d
	case task.DueAt == nil:
		d.Reason = ReasonNoDueDate
		return d
	case !now.After(*task.DueAt):
		d.Reason = ReasonNotDue
		return d
	}

	d.NewRescheduleCount = task.RescheduleCount + 1

	if task.RescheduleCount >= threshold {
		d.Outcome = OutcomeNeedsUserDecision
		d.Reason = ReasonThresholdReached
		return d
	}

	d.Outcome = OutcomeMissed
	d.Reason = ReasonDuePointPassed
	d.Slot = &SlotRequest{
		TaskID:    task.ID,
		Urgency:   slotUrgencyFor(task.Priority()),
		NotBefore: now,
	}
	return d
}

// reslotTask moves a missed task back to pending with the due date supplied
// by the slot finder. Escalated tasks are left for their user.
func reslotTask(task *domain.Task, newDueAt, now time.Time, threshold int) (*domain.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if task.Status != domain.TaskStatusMissed {
		return nil, fmt.Errorf("%w: task %s has status %q", ErrNotMissed, task.ID, task.Status)
	}

	if IsEscalated(task, threshold) {
		return nil, fmt.Errorf("%w: task %s", ErrEscalated, task.ID)
	}

	if !newDueAt.After(now) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrSlotInPast,
			newDueAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	updated := task.Clone()
	updated.Status = domain.TaskStatusPending
	updated.DueAt = &newDueAt
	return updated, nil
}
