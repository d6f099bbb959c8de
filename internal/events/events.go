package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeTaskEscalated is emitted when a task misses its due point after
	// reaching the reschedule threshold and needs a decision from its user.
	TypeTaskEscalated = "task.escalated"

	// TypeTaskMissed is emitted when a task misses its due point and waits
	// for a new slot.
	TypeTaskMissed = "task.missed"
)

// Event is an envelope for something that happened to a task.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type tells consumers how to decode Payload
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the reference time of the run that produced the event
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of the given type with payload serialized as JSON.
func NewEvent(eventType string, payload interface{}, createdAt time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: createdAt,
	}, nil
}

// TaskPayload describes a task whose reschedule state changed.
type TaskPayload struct {
	TaskID          uuid.UUID  `json:"task_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Title           string     `json:"title"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	RescheduleCount int        `json:"reschedule_count"`
	Threshold       int        `json:"threshold"`
	SlotUrgency     string     `json:"slot_urgency,omitempty"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to the handlers subscribed to its type.
	EmitEvent(ctx context.Context, event *Event) error
}
