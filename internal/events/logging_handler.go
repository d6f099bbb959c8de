package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskpilot/internal/platform/logger"
)

// LoggingHandler writes task events to the structured log. Escalations are
// logged at warn level, since they ask a user to act.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. A nil logger uses slog.Default().
func NewLoggingHandler(log *slog.Logger) *LoggingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingHandler{logger: log.With("component", "task_event_log")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	var payload TaskPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode %s event %s: %w", event.Type, event.ID, err)
	}

	log := logger.FromContextOrDefault(ctx, h.logger)
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("task_id", payload.TaskID.String()),
		slog.String("user_id", payload.UserID.String()),
		slog.Int("reschedule_count", payload.RescheduleCount),
	}

	switch event.Type {
	case TypeTaskEscalated:
		attrs = append(attrs, slog.Int("threshold", payload.Threshold))
		log.WarnContext(ctx, "task needs a user decision", attrs...)
	case TypeTaskMissed:
		attrs = append(attrs, slog.String("slot_urgency", payload.SlotUrgency))
		log.InfoContext(ctx, "task missed its due point", attrs...)
	default:
		log.DebugContext(ctx, "ignoring event", slog.String("event_type", event.Type))
	}

	return nil
}
