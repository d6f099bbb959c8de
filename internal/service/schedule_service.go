package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/store"
)

// ScheduledTask is one entry of a user's schedule.
type ScheduledTask struct {
	Rank      int                `json:"rank"`
	Task      domain.Task        `json:"task"`
	Breakdown priority.Breakdown `json:"breakdown"`
}

// UserSchedule is a user's ranked list of schedulable tasks.
type UserSchedule struct {
	UserID      uuid.UUID       `json:"user_id"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	Tasks       []ScheduledTask `json:"tasks"`
}

// TaskIDs returns the task identifiers in rank order.
func (s *UserSchedule) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Tasks))
	for i, t := range s.Tasks {
		ids[i] = t.Task.ID
	}
	return ids
}

// ScheduleService ranks the stored tasks of a user.
type ScheduleService interface {
	// ScheduleForUser loads the user's schedulable tasks, orders them and
	// stores the ranking. A single invalid task fails the whole schedule
	// with an error wrapping ErrScheduleUnavailable.
	ScheduleForUser(ctx context.Context, userID uuid.UUID) (*UserSchedule, error)
}

type scheduleServiceImpl struct {
	tasks  TaskRepository
	engine priority.Service
	clock  func() time.Time
	logger *slog.Logger
}

// NewScheduleService creates a new ScheduleService.
// It returns an error if any of the required dependencies are nil.
// A nil clock uses time.Now.
func NewScheduleService(
	tasks TaskRepository,
	engine priority.Service,
	clock func() time.Time,
	log *slog.Logger,
) (ScheduleService, error) {
	if tasks == nil {
		return nil, &ServiceError{Service: "schedule", Op: "create_service", Err: errors.New("tasks cannot be nil")}
	}
	if engine == nil {
		return nil, &ServiceError{Service: "schedule", Op: "create_service", Err: errors.New("engine cannot be nil")}
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}

	return &scheduleServiceImpl{
		tasks:  tasks,
		engine: engine,
		clock:  clock,
		logger: log.With(slog.String("component", "schedule_service")),
	}, nil
}

// ScheduleForUser implements ScheduleService
func (s *scheduleServiceImpl) ScheduleForUser(ctx context.Context, userID uuid.UUID) (*UserSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))
	now := s.clock().UTC()

	tasks, err := s.tasks.ListSchedulable(ctx, userID)
	if err != nil {
		log.Error("failed to load schedulable tasks", slog.String("error", err.Error()))
		return nil, NewServiceError("schedule", "list_tasks", err)
	}

	ids, err := s.engine.Schedule(tasks, now)
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if invalid, ok := domain.AsInvalidTask(err); ok {
			attrs = append(attrs,
				slog.String("task_id", invalid.TaskID.String()),
				slog.String("field", invalid.Field))
		}
		log.Error("schedule could not be computed", attrs...)
		return nil, fmt.Errorf("%w: %w", ErrScheduleUnavailable, err)
	}

	err = store.RunInTransaction(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).SaveRanking(ctx, userID, ids, now)
	})
	if err != nil {
		log.Error("failed to save ranking", slog.String("error", err.Error()))
		return nil, NewServiceError("schedule", "save_ranking", err)
	}

	schedule := &UserSchedule{
		UserID:      userID,
		EvaluatedAt: now,
		Tasks:       make([]ScheduledTask, 0, len(ids)),
	}

	byID := make(map[uuid.UUID]*domain.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}
	for i, id := range ids {
		task := byID[id]
		breakdown, err := s.breakdown(task, now)
		if err != nil {
			return nil, NewServiceError("schedule", "breakdown", err)
		}
		schedule.Tasks = append(schedule.Tasks, ScheduledTask{
			Rank:      i + 1,
			Task:      *task,
			Breakdown: breakdown,
		})
	}

	log.Info("schedule computed", slog.Int("task_count", len(ids)))
	return schedule, nil
}

// breakdown reuses the score cached by Schedule when it was computed for now.
func (s *scheduleServiceImpl) breakdown(task *domain.Task, now time.Time) (priority.Breakdown, error) {
	if cached, ok := s.engine.LastScore(task.ID); ok && cached.EvaluatedAt.Equal(now) {
		return cached.Breakdown, nil
	}
	return s.engine.Breakdown(task, now)
}
