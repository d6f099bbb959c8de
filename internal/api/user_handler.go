package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/api/shared"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/service"
)

// Triggerer queues an out-of-band reschedule run for a user.
type Triggerer interface {
	Trigger(userID uuid.UUID) error
}

// TaskReslotter persists a new due date for a stored missed task.
type TaskReslotter interface {
	ReslotTask(ctx context.Context, userID, taskID uuid.UUID, newDueAt time.Time) (*domain.Task, error)
}

// UserHandler serves the per-user endpoints backed by the task store.
type UserHandler struct {
	scheduleService service.ScheduleService
	reslotter       TaskReslotter
	trigger         Triggerer
	logger          *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	scheduleService service.ScheduleService,
	reslotter TaskReslotter,
	trigger Triggerer,
	logger *slog.Logger,
) *UserHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UserHandler")
	}

	return &UserHandler{
		scheduleService: scheduleService,
		reslotter:       reslotter,
		trigger:         trigger,
		logger:          logger.With(slog.String("component", "user_handler")),
	}
}

// GetSchedule handles GET /api/users/{id}/schedule requests
func (h *UserHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid user ID")
		return
	}

	schedule, err := h.scheduleService.ScheduleForUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute schedule")
		return
	}

	log.Debug("schedule served",
		slog.String("user_id", userID.String()),
		slog.Int("task_count", len(schedule.Tasks)))
	shared.RespondWithJSON(w, r, http.StatusOK, schedule)
}

// TriggerReschedule handles POST /api/users/{id}/reschedule requests
// The run happens asynchronously; the response only confirms it was queued.
func (h *UserHandler) TriggerReschedule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid user ID")
		return
	}

	if err := h.trigger.Trigger(userID); err != nil {
		log.Warn("failed to queue reschedule run",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to queue reschedule run")
		return
	}

	log.Info("reschedule run queued", slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, TriggerResponse{
		UserID: userID,
		Status: "queued",
	})
}

// ReslotTask handles POST /api/users/{id}/tasks/{taskID}/reslot requests
// The stored task must be missed and not escalated.
func (h *UserHandler) ReslotTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid user ID")
		return
	}
	taskID, err := getPathUUID(r, "taskID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid task ID")
		return
	}

	var req TaskReslotRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	updated, err := h.reslotter.ReslotTask(r.Context(), userID, taskID, req.NewDueAt.UTC())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to re-slot task")
		return
	}

	log.Info("stored task re-slotted",
		slog.String("user_id", userID.String()),
		slog.String("task_id", taskID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, updated)
}
