package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return refNow }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func newTask(userID uuid.UUID, level domain.PriorityLevel, due *time.Time, minutes *int) domain.Task {
	return domain.Task{
		ID:                       uuid.New(),
		UserID:                   userID,
		Title:                    "task " + string(level),
		PriorityLevel:            level,
		DueAt:                    due,
		EstimatedDurationMinutes: minutes,
		Status:                   domain.TaskStatusPending,
	}
}

func newMockRepository(t *testing.T) (*MockTaskRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &MockTaskRepository{db: db}, sqlMock
}

func TestNewScheduleServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewScheduleService(nil, priority.NewDefaultService(), nil, nil)
	assert.Error(t, err)

	_, err = NewScheduleService(&MockTaskRepository{}, nil, nil, nil)
	assert.Error(t, err)

	svc, err := NewScheduleService(&MockTaskRepository{}, priority.NewDefaultService(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestScheduleForUser(t *testing.T) {
	t.Parallel()

	repo, sqlMock := newMockRepository(t)
	userID := uuid.New()

	// Scores: overdue 3.2, due today 3.0.
	today := newTask(userID, domain.PriorityHigh, timePtr(refNow), intPtr(20))
	overdue := newTask(userID, domain.PriorityLow, timePtr(refNow.Add(-24*time.Hour)), intPtr(200))
	done := newTask(userID, domain.PriorityHigh, nil, nil)
	done.Status = domain.TaskStatusCompleted

	repo.On("ListSchedulable", mock.Anything, userID).
		Return([]domain.Task{today, done, overdue}, nil)
	sqlMock.ExpectBegin()
	repo.On("SaveRanking", mock.Anything, userID, []uuid.UUID{overdue.ID, today.ID}, refNow).
		Return(nil)
	sqlMock.ExpectCommit()

	// A non-UTC clock still records UTC times.
	clock := func() time.Time { return refNow.In(time.FixedZone("PDT", -7*60*60)) }
	svc, err := NewScheduleService(repo, priority.NewDefaultService(), clock, nil)
	require.NoError(t, err)

	schedule, err := svc.ScheduleForUser(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, schedule.UserID)
	assert.True(t, refNow.Equal(schedule.EvaluatedAt))
	assert.Equal(t, []uuid.UUID{overdue.ID, today.ID}, schedule.TaskIDs())

	require.Len(t, schedule.Tasks, 2)
	assert.Equal(t, 1, schedule.Tasks[0].Rank)
	assert.InDelta(t, 3.2, schedule.Tasks[0].Breakdown.Score, 1e-9)
	assert.Equal(t, 5, schedule.Tasks[0].Breakdown.Urgency)
	assert.Equal(t, 2, schedule.Tasks[1].Rank)
	assert.InDelta(t, 3.0, schedule.Tasks[1].Breakdown.Score, 1e-9)

	repo.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestScheduleForUserEmpty(t *testing.T) {
	t.Parallel()

	repo, sqlMock := newMockRepository(t)
	userID := uuid.New()

	repo.On("ListSchedulable", mock.Anything, userID).Return([]domain.Task{}, nil)
	sqlMock.ExpectBegin()
	repo.On("SaveRanking", mock.Anything, userID, []uuid.UUID{}, refNow).Return(nil)
	sqlMock.ExpectCommit()

	svc, err := NewScheduleService(repo, priority.NewDefaultService(), fixedClock, nil)
	require.NoError(t, err)

	schedule, err := svc.ScheduleForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, schedule.Tasks)
	assert.NotNil(t, schedule.Tasks)
}

func TestScheduleForUserInvalidTask(t *testing.T) {
	t.Parallel()

	repo, sqlMock := newMockRepository(t)
	userID := uuid.New()

	good := newTask(userID, domain.PriorityHigh, nil, nil)
	bad := newTask(userID, domain.PriorityMedium, nil, intPtr(0))

	repo.On("ListSchedulable", mock.Anything, userID).Return([]domain.Task{good, bad}, nil)

	log, logBuf := logger.GetTestLogger(t)
	svc, err := NewScheduleService(repo, priority.NewDefaultService(), fixedClock, log)
	require.NoError(t, err)

	schedule, err := svc.ScheduleForUser(context.Background(), userID)
	require.Error(t, err)
	assert.Nil(t, schedule)
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	invalid, ok := domain.AsInvalidTask(err)
	require.True(t, ok)
	assert.Equal(t, bad.ID, invalid.TaskID)

	entries, err := logBuf.EntriesWithMessage("schedule could not be computed")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bad.ID.String(), entries[0]["task_id"])

	repo.AssertNotCalled(t, "SaveRanking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestScheduleForUserStoreErrors(t *testing.T) {
	t.Parallel()

	t.Run("list fails", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepository(t)
		userID := uuid.New()
		listErr := errors.New("connection reset")
		repo.On("ListSchedulable", mock.Anything, userID).Return(nil, listErr)

		svc, err := NewScheduleService(repo, priority.NewDefaultService(), fixedClock, nil)
		require.NoError(t, err)

		_, err = svc.ScheduleForUser(context.Background(), userID)
		require.Error(t, err)
		assert.ErrorIs(t, err, listErr)
		assert.NotErrorIs(t, err, ErrScheduleUnavailable)

		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "list_tasks", serviceErr.Op)
	})

	t.Run("save fails and rolls back", func(t *testing.T) {
		t.Parallel()

		repo, sqlMock := newMockRepository(t)
		userID := uuid.New()
		task := newTask(userID, domain.PriorityLow, nil, nil)
		saveErr := errors.New("deadlock detected")

		repo.On("ListSchedulable", mock.Anything, userID).Return([]domain.Task{task}, nil)
		sqlMock.ExpectBegin()
		repo.On("SaveRanking", mock.Anything, userID, []uuid.UUID{task.ID}, refNow).Return(saveErr)
		sqlMock.ExpectRollback()

		svc, err := NewScheduleService(repo, priority.NewDefaultService(), fixedClock, nil)
		require.NoError(t, err)

		_, err = svc.ScheduleForUser(context.Background(), userID)
		require.Error(t, err)
		assert.ErrorIs(t, err, saveErr)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
