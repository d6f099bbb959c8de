package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/phrazzld/taskpilot/internal/redact"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	TaskID  string `json:"task_id,omitempty"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	Code    int    `json:"-"`
}

// ResponseOption tweaks a single error response.
type ResponseOption func(*errorResponseConfig)

type errorResponseConfig struct {
	warnOnClientError bool
	taskID            uuid.UUID
	field             string
}

// WithElevatedLogLevel logs a 4xx response at WARN instead of DEBUG.
func WithElevatedLogLevel() ResponseOption {
	return func(c *errorResponseConfig) { c.warnOnClientError = true }
}

// WithInvalidTask names the rejected task and field in the body.
func WithInvalidTask(taskID uuid.UUID, field string) ResponseOption {
	return func(c *errorResponseConfig) {
		c.taskID = taskID
		c.field = field
	}
}

// RespondWithJSON encodes data as the response body.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

// RespondWithErrorAndLog sends userMessage to the client and logs err in
// redacted form. The log level follows the status: ERROR for 5xx, DEBUG for
// 4xx unless WithElevatedLogLevel is given.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var cfg errorResponseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	body := ErrorResponse{
		Error:   userMessage,
		Field:   cfg.field,
		TraceID: GetTraceID(r.Context()),
		Code:    status,
	}
	if cfg.taskID != uuid.Nil {
		body.TaskID = cfg.taskID.String()
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if body.TaskID != "" {
		attrs = append(attrs, slog.String("task_id", body.TaskID))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logger.FromContext(r.Context()).LogAttrs(r.Context(), errorLogLevel(status, cfg), "API error response", attrs...)

	RespondWithJSON(w, r, status, body)
}

func errorLogLevel(status int, cfg errorResponseConfig) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case cfg.warnOnClientError:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
