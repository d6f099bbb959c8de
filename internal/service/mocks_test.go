package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/events"
	"github.com/phrazzld/taskpilot/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository mocks the TaskRepository interface
type MockTaskRepository struct {
	mock.Mock
	db *sql.DB
}

func (m *MockTaskRepository) ListSchedulable(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockTaskRepository) ListRescheduleCandidates(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]domain.Task, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepository) ApplyTransition(ctx context.Context, transition store.Transition) error {
	args := m.Called(ctx, transition)
	return args.Error(0)
}

func (m *MockTaskRepository) ApplyReslot(
	ctx context.Context,
	taskID uuid.UUID,
	expectedRescheduleCount int,
	newDueAt time.Time,
) error {
	args := m.Called(ctx, taskID, expectedRescheduleCount, newDueAt)
	return args.Error(0)
}

func (m *MockTaskRepository) SaveRanking(
	ctx context.Context,
	userID uuid.UUID,
	ids []uuid.UUID,
	evaluatedAt time.Time,
) error {
	args := m.Called(ctx, userID, ids, evaluatedAt)
	return args.Error(0)
}

// WithTx returns the same mock so expectations cover transactional calls.
func (m *MockTaskRepository) WithTx(tx *sql.Tx) TaskRepository {
	return m
}

func (m *MockTaskRepository) DB() *sql.DB {
	return m.db
}

// recordingEmitter collects emitted events and can be told to fail.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) emitted() []*events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.Event(nil), e.events...)
}

// memoryTaskRepository keeps tasks in a map and enforces the same guards as
// the postgres store, so a test can drive several runs over one task.
type memoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
	db    *sql.DB
}

func newMemoryTaskRepository(db *sql.DB, tasks ...domain.Task) *memoryTaskRepository {
	r := &memoryTaskRepository{tasks: make(map[uuid.UUID]domain.Task), db: db}
	for _, task := range tasks {
		r.tasks[task.ID] = *task.Clone()
	}
	return r
}

func (r *memoryTaskRepository) get(id uuid.UUID) domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := r.tasks[id]
	return *task.Clone()
}

func (r *memoryTaskRepository) ListSchedulable(_ context.Context, userID uuid.UUID) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Task
	for _, task := range r.tasks {
		if task.UserID == userID && task.IsSchedulable() {
			out = append(out, *task.Clone())
		}
	}
	return out, nil
}

func (r *memoryTaskRepository) ListRescheduleCandidates(
	_ context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Task
	for _, task := range r.tasks {
		open := task.Status == domain.TaskStatusPending || task.Status == domain.TaskStatusInProgress
		if task.UserID == userID && open && task.DueAt != nil && task.DueAt.Before(now) {
			out = append(out, *task.Clone())
		}
	}
	return out, nil
}

func (r *memoryTaskRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (r *memoryTaskRepository) ApplyTransition(_ context.Context, transition store.Transition) error {
	if err := transition.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[transition.TaskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	open := task.Status == domain.TaskStatusPending || task.Status == domain.TaskStatusInProgress
	if !open || task.RescheduleCount != transition.ExpectedRescheduleCount {
		return store.NewTaskError("transition", task.ID, store.ErrStaleTransition)
	}

	task.Status = transition.Status
	task.RescheduleCount = transition.NewRescheduleCount
	evaluatedAt := transition.EvaluatedAt
	task.LastEvaluatedAt = &evaluatedAt
	r.tasks[task.ID] = task
	return nil
}

func (r *memoryTaskRepository) ApplyReslot(
	_ context.Context,
	taskID uuid.UUID,
	expectedRescheduleCount int,
	newDueAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusMissed || task.RescheduleCount != expectedRescheduleCount {
		return store.NewTaskError("reslot", taskID, store.ErrStaleTransition)
	}

	task.Status = domain.TaskStatusPending
	task.DueAt = &newDueAt
	r.tasks[taskID] = task
	return nil
}

func (r *memoryTaskRepository) SaveRanking(context.Context, uuid.UUID, []uuid.UUID, time.Time) error {
	return nil
}

func (r *memoryTaskRepository) WithTx(*sql.Tx) TaskRepository {
	return r
}

func (r *memoryTaskRepository) DB() *sql.DB {
	return r.db
}
