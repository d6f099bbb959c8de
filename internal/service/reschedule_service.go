package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/events"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/reschedule"
	"github.com/phrazzld/taskpilot/internal/store"
)

// RescheduleService performs the per-user reschedule run.
type RescheduleService interface {
	// RunForUser evaluates every overdue open task of the user, persists the
	// resulting transitions in one transaction and emits an event per
	// transition. Tasks that changed since they were read are skipped.
	RunForUser(ctx context.Context, userID uuid.UUID) (reschedule.Summary, error)

	// ReslotTask gives a stored missed task of the user a new due date and
	// moves it back to pending, so later runs can evaluate it again.
	// Escalated tasks are refused with priority.ErrEscalated.
	ReslotTask(ctx context.Context, userID, taskID uuid.UUID, newDueAt time.Time) (*domain.Task, error)
}

type rescheduleServiceImpl struct {
	tasks        TaskRepository
	engine       priority.Service
	eventEmitter events.EventEmitter
	clock        func() time.Time
	logger       *slog.Logger
}

// NewRescheduleService creates a new RescheduleService.
// It returns an error if any of the required dependencies are nil.
// A nil clock uses time.Now.
func NewRescheduleService(
	tasks TaskRepository,
	engine priority.Service,
	eventEmitter events.EventEmitter,
	clock func() time.Time,
	log *slog.Logger,
) (RescheduleService, error) {
	if tasks == nil {
		return nil, &ServiceError{Service: "reschedule", Op: "create_service", Err: errors.New("tasks cannot be nil")}
	}
	if engine == nil {
		return nil, &ServiceError{Service: "reschedule", Op: "create_service", Err: errors.New("engine cannot be nil")}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Service: "reschedule", Op: "create_service", Err: errors.New("eventEmitter cannot be nil")}
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}

	return &rescheduleServiceImpl{
		tasks:        tasks,
		engine:       engine,
		eventEmitter: eventEmitter,
		clock:        clock,
		logger:       log.With(slog.String("component", "reschedule_service")),
	}, nil
}

// pendingTransition pairs a decision with the snapshot it was computed from.
type pendingTransition struct {
	task     *domain.Task
	decision priority.Decision
}

// RunForUser implements RescheduleService
func (s *rescheduleServiceImpl) RunForUser(ctx context.Context, userID uuid.UUID) (reschedule.Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))
	now := s.clock().UTC()
	summary := reschedule.Summary{UserID: userID}

	candidates, err := s.tasks.ListRescheduleCandidates(ctx, userID, now)
	if err != nil {
		log.Error("failed to load reschedule candidates", slog.String("error", err.Error()))
		return summary, NewServiceError("reschedule", "list_candidates", err)
	}

	pending := make([]pendingTransition, 0, len(candidates))
	for i := range candidates {
		task := &candidates[i]
		decision, err := s.engine.EvaluateReschedule(task, now)
		if err != nil {
			return summary, NewServiceError("reschedule", "evaluate", err)
		}
		summary.Evaluated++
		if decision.Changed() {
			pending = append(pending, pendingTransition{task: task, decision: decision})
		}
	}

	if len(pending) == 0 {
		log.Debug("no reschedule transitions", slog.Int("evaluated", summary.Evaluated))
		return summary, nil
	}

	var applied []pendingTransition
	var skipped int
	err = store.RunInTransaction(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.tasks.WithTx(tx)
		applied = applied[:0]
		skipped = 0

		for _, p := range pending {
			err := txRepo.ApplyTransition(ctx, store.Transition{
				TaskID:                  p.task.ID,
				UserID:                  userID,
				Status:                  domain.TaskStatusMissed,
				ExpectedRescheduleCount: p.decision.PreviousRescheduleCount,
				NewRescheduleCount:      p.decision.NewRescheduleCount,
				EvaluatedAt:             now,
			})
			switch {
			case err == nil:
				applied = append(applied, p)
			case errors.Is(err, store.ErrStaleTransition), errors.Is(err, store.ErrTaskNotFound):
				log.Info("skipping task changed since evaluation",
					slog.String("task_id", p.task.ID.String()),
					slog.String("error", err.Error()))
				skipped++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to persist reschedule transitions", slog.String("error", err.Error()))
		return summary, NewServiceError("reschedule", "apply_transitions", err)
	}

	summary.Skipped = skipped
	threshold := s.engine.Params().RescheduleThreshold
	for _, p := range applied {
		eventType := events.TypeTaskMissed
		if p.decision.Outcome == priority.OutcomeNeedsUserDecision {
			eventType = events.TypeTaskEscalated
			summary.Escalated++
		} else {
			summary.Missed++
		}
		s.emit(ctx, log, eventType, p, threshold, now)
	}

	log.Info("reschedule run completed",
		slog.Int("evaluated", summary.Evaluated),
		slog.Int("missed", summary.Missed),
		slog.Int("escalated", summary.Escalated),
		slog.Int("skipped", summary.Skipped))
	return summary, nil
}

// ReslotTask implements RescheduleService
func (s *rescheduleServiceImpl) ReslotTask(
	ctx context.Context,
	userID, taskID uuid.UUID,
	newDueAt time.Time,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("task_id", taskID.String()))
	now := s.clock().UTC()
	newDueAt = newDueAt.UTC()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("reschedule", "get_task", err)
	}
	if task.UserID != userID {
		log.Debug("task belongs to another user")
		return nil, ErrTaskNotFound
	}

	updated, err := s.engine.Reslot(task, newDueAt, now)
	if err != nil {
		log.Debug("reslot refused", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.tasks.ApplyReslot(ctx, task.ID, task.RescheduleCount, newDueAt); err != nil {
		log.Warn("failed to persist reslot", slog.String("error", err.Error()))
		return nil, NewServiceError("reschedule", "apply_reslot", err)
	}

	log.Info("task re-slotted",
		slog.Time("due_at", newDueAt),
		slog.Int("reschedule_count", updated.RescheduleCount))
	return updated, nil
}

// emit publishes the event for an applied transition. The transition is
// already committed, so a failing handler is logged and not returned.
func (s *rescheduleServiceImpl) emit(
	ctx context.Context,
	log *slog.Logger,
	eventType string,
	p pendingTransition,
	threshold int,
	now time.Time,
) {
	payload := events.TaskPayload{
		TaskID:          p.task.ID,
		UserID:          p.task.UserID,
		Title:           p.task.Title,
		DueAt:           p.task.DueAt,
		RescheduleCount: p.decision.NewRescheduleCount,
		Threshold:       threshold,
	}
	if p.decision.Slot != nil {
		payload.SlotUrgency = string(p.decision.Slot.Urgency)
	}

	event, err := events.NewEvent(eventType, payload, now)
	if err != nil {
		log.Error("failed to create event",
			slog.String("error", err.Error()),
			slog.String("task_id", p.task.ID.String()),
			slog.String("event_type", eventType))
		return
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit event",
			slog.String("error", err.Error()),
			slog.String("task_id", p.task.ID.String()),
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()))
	}
}

// Verify that the reschedule service can drive the runner
var _ reschedule.UserRunner = (*rescheduleServiceImpl)(nil)
