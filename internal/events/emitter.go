package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/taskpilot/internal/platform/logger"
)

// subscription binds a handler to the event types it wants. An empty type
// list receives every event.
type subscription struct {
	handler EventHandler
	types   []string
}

func (s subscription) accepts(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventEmitter delivers events synchronously to the handlers
// subscribed to their type, in registration order.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(log *slog.Logger) *InMemoryEventEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: log.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes handler to the given event types, or to all
// events when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscriptions = append(e.subscriptions, subscription{handler: handler, types: types})
	e.logger.Debug("registered event handler",
		slog.Any("event_types", types),
		slog.Int("handler_count", len(e.subscriptions)))
}

// EmitEvent implements EventEmitter. Every matching handler runs even when
// an earlier one fails; the failures are joined into the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	e.mu.RLock()
	subs := slices.Clone(e.subscriptions)
	e.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))

	var errs []error
	delivered := 0
	for _, sub := range subs {
		if !sub.accepts(event.Type) {
			continue
		}
		delivered++
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("handler %T: %w", sub.handler, err))
		}
	}

	if delivered == 0 {
		log.Debug("no handler subscribed to event")
	}
	return errors.Join(errs...)
}
