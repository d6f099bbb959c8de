package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/store"
)

const taskColumns = `id, user_id, title, description, priority_level, due_at,
	estimated_duration_minutes, status, reschedule_count, last_evaluated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task          domain.Task
		priorityLevel string
		status        string
		dueAt         sql.NullTime
		duration      sql.NullInt32
		lastEvaluated sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&priorityLevel,
		&dueAt,
		&duration,
		&status,
		&task.RescheduleCount,
		&lastEvaluated,
	)
	if err != nil {
		return nil, err
	}

	task.PriorityLevel = domain.PriorityLevel(priorityLevel)
	task.Status = domain.TaskStatus(status)
	if dueAt.Valid {
		due := dueAt.Time.UTC()
		task.DueAt = &due
	}
	if duration.Valid {
		minutes := int(duration.Int32)
		task.EstimatedDurationMinutes = &minutes
	}
	if lastEvaluated.Valid {
		at := lastEvaluated.Time.UTC()
		task.LastEvaluatedAt = &at
	}

	return &task, nil
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task.UserID == uuid.Nil {
		return fmt.Errorf("%w: task %s has no user", store.ErrInvalidEntity, task.ID)
	}
	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var duration any
	if task.EstimatedDurationMinutes != nil {
		duration = *task.EstimatedDurationMinutes
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description, priority_level, due_at,
			estimated_duration_minutes, status, reschedule_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		string(task.PriorityLevel),
		nullableTime(task.DueAt),
		duration,
		string(task.Status),
		task.RescheduleCount,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// ListSchedulable implements store.TaskStore.ListSchedulable
func (s *PostgresTaskStore) ListSchedulable(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status IN ('pending', 'in_progress', 'missed')
		ORDER BY created_at ASC, id ASC
	`
	return s.queryTasks(ctx, "list schedulable tasks", query, userID)
}

// ListRescheduleCandidates implements store.TaskStore.ListRescheduleCandidates
func (s *PostgresTaskStore) ListRescheduleCandidates(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
			AND status IN ('pending', 'in_progress')
			AND due_at IS NOT NULL
			AND due_at < $2
		ORDER BY due_at ASC, id ASC
	`
	return s.queryTasks(ctx, "list reschedule candidates", query, userID, now)
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, op string, query string, args ...any) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op, slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug(op, slog.Int("count", len(tasks)))
	return tasks, nil
}

// ListUsersWithOverdueTasks implements store.TaskStore.ListUsersWithOverdueTasks
func (s *PostgresTaskStore) ListUsersWithOverdueTasks(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT DISTINCT user_id
		FROM tasks
		WHERE status IN ('pending', 'in_progress')
			AND due_at IS NOT NULL
			AND due_at < $1
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		log.Error("failed to list users with overdue tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	users := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Error("failed to scan user id", slog.String("error", err.Error()))
			return nil, err
		}
		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return users, nil
}

// ApplyTransition implements store.TaskStore.ApplyTransition
//
// The UPDATE only matches a task that still has the reschedule count and the
// open status the transition was computed from. When nothing matches, a
// second query tells a missing task apart from a stale snapshot.
func (s *PostgresTaskStore) ApplyTransition(ctx context.Context, transition store.Transition) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", transition.TaskID.String()))

	if err := transition.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET status = $1, reschedule_count = $2, last_evaluated_at = $3, updated_at = NOW()
		WHERE id = $4
			AND reschedule_count = $5
			AND status IN ('pending', 'in_progress')
	`
	result, err := s.db.ExecContext(ctx, query,
		string(transition.Status),
		transition.NewRescheduleCount,
		transition.EvaluatedAt,
		transition.TaskID,
		transition.ExpectedRescheduleCount,
	)
	if err != nil {
		log.Error("failed to apply transition", slog.String("error", err.Error()))
		return MapError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug("transition applied",
			slog.String("status", string(transition.Status)),
			slog.Int("reschedule_count", transition.NewRescheduleCount))
		return nil
	}

	if err := s.missingOrStale(ctx, log, transition.TaskID); err != nil {
		return err
	}

	log.Warn("transition skipped, task changed since evaluation",
		slog.Int("expected_reschedule_count", transition.ExpectedRescheduleCount))
	return store.NewTaskError("transition", transition.TaskID, store.ErrStaleTransition)
}

// ApplyReslot implements store.TaskStore.ApplyReslot
func (s *PostgresTaskStore) ApplyReslot(
	ctx context.Context,
	taskID uuid.UUID,
	expectedRescheduleCount int,
	newDueAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", taskID.String()))

	if taskID == uuid.Nil {
		return fmt.Errorf("%w: reslot has no task id", store.ErrInvalidEntity)
	}
	if newDueAt.IsZero() {
		return fmt.Errorf("%w: reslot has no due date", store.ErrInvalidEntity)
	}

	query := `
		UPDATE tasks
		SET status = 'pending', due_at = $1, updated_at = NOW()
		WHERE id = $2
			AND status = 'missed'
			AND reschedule_count = $3
	`
	result, err := s.db.ExecContext(ctx, query, newDueAt.UTC(), taskID, expectedRescheduleCount)
	if err != nil {
		log.Error("failed to reslot task", slog.String("error", err.Error()))
		return MapError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug("task re-slotted", slog.Time("due_at", newDueAt.UTC()))
		return nil
	}

	if err := s.missingOrStale(ctx, log, taskID); err != nil {
		return err
	}

	log.Warn("reslot skipped, task changed since it was read",
		slog.Int("expected_reschedule_count", expectedRescheduleCount))
	return store.NewTaskError("reslot", taskID, store.ErrStaleTransition)
}

// missingOrStale runs after a guarded UPDATE matched nothing. It returns
// ErrTaskNotFound when the task is gone and nil when it exists, meaning the
// guard failed on a stale snapshot.
func (s *PostgresTaskStore) missingOrStale(ctx context.Context, log *slog.Logger, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`,
		id).Scan(&exists); err != nil {
		log.Error("failed to check task existence", slog.String("error", err.Error()))
		return MapError(err)
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	return nil
}

// SaveRanking implements store.TaskStore.SaveRanking
// Ranks are 1-based. Tasks of the user missing from ids lose their rank.
func (s *PostgresTaskStore) SaveRanking(
	ctx context.Context,
	userID uuid.UUID,
	ids []uuid.UUID,
	evaluatedAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()))

	clearQuery := `UPDATE tasks SET rank = NULL WHERE user_id = $1 AND rank IS NOT NULL`
	if _, err := s.db.ExecContext(ctx, clearQuery, userID); err != nil {
		log.Error("failed to clear ranking", slog.String("error", err.Error()))
		return MapError(err)
	}

	update := `
		UPDATE tasks
		SET rank = $1, last_evaluated_at = $2
		WHERE id = $3 AND user_id = $4
	`
	for i, id := range ids {
		result, err := s.db.ExecContext(ctx, update, i+1, evaluatedAt, id, userID)
		if err != nil {
			log.Error("failed to save rank",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
			return MapError(err)
		}

		n, err := rowsAffected(result)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
	}

	log.Debug("ranking saved", slog.Int("count", len(ids)))
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
