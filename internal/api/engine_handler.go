package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskpilot/internal/api/shared"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/service"
)

// EngineHandler exposes the stateless engine operations over task snapshots
// supplied in the request body.
type EngineHandler struct {
	engine priority.Service
	clock  func() time.Time
	logger *slog.Logger
}

// NewEngineHandler creates a new EngineHandler. A nil clock uses time.Now.
func NewEngineHandler(engine priority.Service, clock func() time.Time, logger *slog.Logger) *EngineHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EngineHandler")
	}
	if clock == nil {
		clock = time.Now
	}

	return &EngineHandler{
		engine: engine,
		clock:  clock,
		logger: logger.With(slog.String("component", "engine_handler")),
	}
}

// decodeAndValidate reads the JSON body into req and validates it, writing
// a 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		log.Warn("invalid request format", slog.String("error", err.Error()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// Score handles POST /api/score requests
func (h *EngineHandler) Score(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ScoreRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}
	normalizeTask(req.Task)
	now := referenceTime(req.Now, h.clock)

	breakdown, err := h.engine.Breakdown(req.Task, now)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to score task")
		return
	}

	log.Debug("task scored",
		slog.String("task_id", req.Task.ID.String()),
		slog.Float64("score", breakdown.Score))
	shared.RespondWithJSON(w, r, http.StatusOK, ScoreResponse{
		TaskID:      req.Task.ID,
		Score:       breakdown.Score,
		Breakdown:   breakdown,
		EvaluatedAt: now,
	})
}

// Schedule handles POST /api/schedule requests
// A single invalid task fails the whole batch with 422 naming that task.
func (h *EngineHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ScheduleRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}
	for i := range req.Tasks {
		normalizeTask(&req.Tasks[i])
	}
	now := referenceTime(req.Now, h.clock)

	ids, err := h.engine.Schedule(req.Tasks, now)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", service.ErrScheduleUnavailable, err), "Failed to compute schedule")
		return
	}

	log.Debug("batch scheduled",
		slog.Int("submitted", len(req.Tasks)),
		slog.Int("scheduled", len(ids)))
	shared.RespondWithJSON(w, r, http.StatusOK, ScheduleResponse{
		TaskIDs:     ids,
		EvaluatedAt: now,
	})
}

// EvaluateReschedule handles POST /api/reschedule/evaluate requests
func (h *EngineHandler) EvaluateReschedule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req EvaluateRescheduleRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}
	normalizeTask(req.Task)
	now := referenceTime(req.Now, h.clock)

	if err := req.Task.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	threshold := h.engine.Params().RescheduleThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	decision := priority.EvaluateReschedule(req.Task, now, threshold)

	log.Debug("reschedule evaluated",
		slog.String("task_id", req.Task.ID.String()),
		slog.String("outcome", string(decision.Outcome)),
		slog.String("reason", string(decision.Reason)))
	shared.RespondWithJSON(w, r, http.StatusOK, EvaluateRescheduleResponse{
		Decision:    decision,
		Threshold:   threshold,
		Escalated:   priority.IsEscalated(decision.Apply(req.Task), threshold),
		EvaluatedAt: now,
	})
}

// Reslot handles POST /api/reschedule/reslot requests
// It moves a missed task back to pending with the supplied due date.
func (h *EngineHandler) Reslot(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ReslotRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}
	normalizeTask(req.Task)
	now := referenceTime(req.Now, h.clock)

	if err := req.Task.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	threshold := h.engine.Params().RescheduleThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	updated, err := priority.Reslot(req.Task, req.NewDueAt.UTC(), now, threshold)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to re-slot task")
		return
	}

	log.Debug("task re-slotted",
		slog.String("task_id", updated.ID.String()),
		slog.Time("due_at", *updated.DueAt))
	shared.RespondWithJSON(w, r, http.StatusOK, updated)
}

