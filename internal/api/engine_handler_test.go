package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/api/shared"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2026, time.May, 14, 10, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func newTestTask(level domain.PriorityLevel, due *time.Time, minutes *int) *domain.Task {
	return &domain.Task{
		ID:                       uuid.New(),
		UserID:                   uuid.New(),
		Title:                    "task",
		PriorityLevel:            level,
		DueAt:                    due,
		EstimatedDurationMinutes: minutes,
		Status:                   domain.TaskStatusPending,
	}
}

func newTestEngineHandler(t *testing.T) *EngineHandler {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	return NewEngineHandler(priority.NewDefaultService(), func() time.Time { return refNow }, log)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestNewEngineHandlerPanicsWithoutLogger(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewEngineHandler(priority.NewDefaultService(), nil, nil)
	})
}

func TestEngineHandler_Score(t *testing.T) {
	t.Parallel()

	t.Run("scores a task against the supplied time", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityHigh, timePtr(refNow), intPtr(20))

		rr := postJSON(t, h.Score, "/api/score", ScoreRequest{Task: task, Now: timePtr(refNow)})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ScoreResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, task.ID, resp.TaskID)
		assert.InDelta(t, 3.0, resp.Score, 1e-9)
		assert.Equal(t, 3, resp.Breakdown.Priority)
		assert.Equal(t, 4, resp.Breakdown.Urgency)
		assert.Equal(t, 1, resp.Breakdown.Complexity)
		assert.True(t, refNow.Equal(resp.EvaluatedAt))
	})

	t.Run("defaults now to the handler clock", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityLow, timePtr(refNow.Add(-24*time.Hour)), intPtr(200))

		rr := postJSON(t, h.Score, "/api/score", ScoreRequest{Task: task})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ScoreResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.InDelta(t, 3.2, resp.Score, 1e-9)
		assert.True(t, refNow.Equal(resp.EvaluatedAt))
	})

	t.Run("missing task", func(t *testing.T) {
		h := newTestEngineHandler(t)

		rr := postJSON(t, h.Score, "/api/score", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr).Error, "required")
	})

	t.Run("empty body", func(t *testing.T) {
		h := newTestEngineHandler(t)

		rr := postJSON(t, h.Score, "/api/score", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request format", decodeError(t, rr).Error)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		h := newTestEngineHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/score", bytes.NewBufferString("{not json"))
		rr := httptest.NewRecorder()
		h.Score(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid duration names the task", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityHigh, nil, intPtr(0))

		rr := postJSON(t, h.Score, "/api/score", ScoreRequest{Task: task})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		resp := decodeError(t, rr)
		assert.Equal(t, task.ID.String(), resp.TaskID)
		assert.Equal(t, "estimated_duration_minutes", resp.Field)
		assert.Contains(t, resp.Error, "Invalid task")
	})
}

func TestEngineHandler_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("orders the batch", func(t *testing.T) {
		h := newTestEngineHandler(t)
		today := newTestTask(domain.PriorityHigh, timePtr(refNow), intPtr(20))
		overdue := newTestTask(domain.PriorityLow, timePtr(refNow.Add(-24*time.Hour)), intPtr(200))
		done := newTestTask(domain.PriorityHigh, timePtr(refNow), nil)
		done.Status = domain.TaskStatusCompleted

		rr := postJSON(t, h.Schedule, "/api/schedule", ScheduleRequest{
			Tasks: []domain.Task{*today, *done, *overdue},
			Now:   timePtr(refNow),
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ScheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, []uuid.UUID{overdue.ID, today.ID}, resp.TaskIDs)
	})

	t.Run("tasks without status are pending", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityMedium, nil, nil)
		task.Status = ""

		rr := postJSON(t, h.Schedule, "/api/schedule", ScheduleRequest{Tasks: []domain.Task{*task}})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ScheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, []uuid.UUID{task.ID}, resp.TaskIDs)
	})

	t.Run("empty batch", func(t *testing.T) {
		h := newTestEngineHandler(t)

		rr := postJSON(t, h.Schedule, "/api/schedule", ScheduleRequest{Tasks: []domain.Task{}})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ScheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Empty(t, resp.TaskIDs)
	})

	t.Run("missing tasks", func(t *testing.T) {
		h := newTestEngineHandler(t)

		rr := postJSON(t, h.Schedule, "/api/schedule", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("one invalid task fails the batch", func(t *testing.T) {
		h := newTestEngineHandler(t)
		good := newTestTask(domain.PriorityHigh, nil, nil)
		bad := newTestTask(domain.PriorityMedium, nil, intPtr(-5))

		rr := postJSON(t, h.Schedule, "/api/schedule", ScheduleRequest{Tasks: []domain.Task{*good, *bad}})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		resp := decodeError(t, rr)
		assert.Equal(t, "Schedule could not be computed", resp.Error)
		assert.Equal(t, bad.ID.String(), resp.TaskID)
		assert.NotContains(t, rr.Body.String(), "task_ids")
	})

	t.Run("duplicate IDs", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityHigh, nil, nil)

		rr := postJSON(t, h.Schedule, "/api/schedule", ScheduleRequest{Tasks: []domain.Task{*task, *task}})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, task.ID.String(), decodeError(t, rr).TaskID)
	})
}

func TestEngineHandler_EvaluateReschedule(t *testing.T) {
	t.Parallel()

	t.Run("missed task", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityHigh, timePtr(refNow.Add(-5*time.Hour)), nil)

		rr := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task, Now: timePtr(refNow)})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp EvaluateRescheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, task.ID, resp.TaskID)
		assert.Equal(t, priority.OutcomeMissed, resp.Outcome)
		assert.Equal(t, priority.ReasonDuePointPassed, resp.Reason)
		assert.Equal(t, 1, resp.NewRescheduleCount)
		assert.Equal(t, priority.DefaultRescheduleThreshold, resp.Threshold)
		assert.False(t, resp.Escalated)
		require.NotNil(t, resp.Slot)
		assert.Equal(t, priority.SlotUrgencyToday, resp.Slot.Urgency)
	})

	t.Run("threshold override escalates", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityMedium, timePtr(refNow.Add(-time.Hour)), nil)
		task.RescheduleCount = 1

		rr := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task, Threshold: intPtr(1)})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp EvaluateRescheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, priority.OutcomeNeedsUserDecision, resp.Outcome)
		assert.Equal(t, 2, resp.NewRescheduleCount)
		assert.Equal(t, 1, resp.Threshold)
		assert.True(t, resp.Escalated)
		assert.Nil(t, resp.Slot)
	})

	t.Run("task not yet due", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityMedium, timePtr(refNow.Add(time.Hour)), nil)

		rr := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp EvaluateRescheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, priority.OutcomeUnchanged, resp.Outcome)
		assert.Equal(t, priority.ReasonNotDue, resp.Reason)
	})

	t.Run("zero threshold is rejected", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityMedium, nil, nil)

		rr := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task, Threshold: intPtr(0)})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityMedium, nil, nil)
		task.Status = "archived"

		rr := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "status", decodeError(t, rr).Field)
	})
}

func TestEngineHandler_Reslot(t *testing.T) {
	t.Parallel()

	newDue := refNow.Add(24 * time.Hour)

	t.Run("missed task returns to pending", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityLow, timePtr(refNow.Add(-time.Hour)), nil)
		task.Status = domain.TaskStatusMissed
		task.RescheduleCount = 2

		rr := postJSON(t, h.Reslot, "/api/reschedule/reslot",
			ReslotRequest{Task: task, NewDueAt: &newDue, Now: timePtr(refNow)})
		require.Equal(t, http.StatusOK, rr.Code)

		var updated domain.Task
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
		assert.Equal(t, domain.TaskStatusPending, updated.Status)
		assert.Equal(t, 2, updated.RescheduleCount)
		require.NotNil(t, updated.DueAt)
		assert.True(t, newDue.Equal(*updated.DueAt))
	})

	testCases := []struct {
		name           string
		status         domain.TaskStatus
		count          int
		dueAt          time.Time
		expectedStatus int
	}{
		{"pending task", domain.TaskStatusPending, 0, newDue, http.StatusBadRequest},
		{"slot in the past", domain.TaskStatusMissed, 1, refNow.Add(-time.Minute), http.StatusBadRequest},
		{"escalated task", domain.TaskStatusMissed, priority.DefaultRescheduleThreshold + 1, newDue, http.StatusConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestEngineHandler(t)
			task := newTestTask(domain.PriorityLow, timePtr(refNow.Add(-time.Hour)), nil)
			task.Status = tc.status
			task.RescheduleCount = tc.count

			rr := postJSON(t, h.Reslot, "/api/reschedule/reslot",
				ReslotRequest{Task: task, NewDueAt: timePtr(tc.dueAt), Now: timePtr(refNow)})
			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}

	t.Run("missing new due date", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityLow, nil, nil)
		task.Status = domain.TaskStatusMissed

		rr := postJSON(t, h.Reslot, "/api/reschedule/reslot", ReslotRequest{Task: task})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("threshold override matches evaluation", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityLow, timePtr(refNow.Add(-time.Hour)), nil)
		task.Status = domain.TaskStatusMissed
		task.RescheduleCount = 2

		evaluated := postJSON(t, h.EvaluateReschedule, "/api/reschedule/evaluate",
			EvaluateRescheduleRequest{Task: task, Now: timePtr(refNow), Threshold: intPtr(1)})
		require.Equal(t, http.StatusOK, evaluated.Code)
		var decision EvaluateRescheduleResponse
		require.NoError(t, json.Unmarshal(evaluated.Body.Bytes(), &decision))
		require.True(t, decision.Escalated)

		rr := postJSON(t, h.Reslot, "/api/reschedule/reslot",
			ReslotRequest{Task: task, NewDueAt: &newDue, Now: timePtr(refNow), Threshold: intPtr(1)})
		assert.Equal(t, http.StatusConflict, rr.Code)

		rr = postJSON(t, h.Reslot, "/api/reschedule/reslot",
			ReslotRequest{Task: task, NewDueAt: &newDue, Now: timePtr(refNow)})
		assert.Equal(t, http.StatusOK, rr.Code, "the configured threshold of 3 still allows a re-slot")
	})

	t.Run("threshold below one is rejected", func(t *testing.T) {
		h := newTestEngineHandler(t)
		task := newTestTask(domain.PriorityLow, nil, nil)
		task.Status = domain.TaskStatusMissed

		rr := postJSON(t, h.Reslot, "/api/reschedule/reslot",
			ReslotRequest{Task: task, NewDueAt: &newDue, Now: timePtr(refNow), Threshold: intPtr(0)})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
