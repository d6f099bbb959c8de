package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	payload := TaskPayload{
		TaskID:          uuid.New(),
		UserID:          uuid.New(),
		Title:           "File taxes",
		RescheduleCount: 4,
		Threshold:       3,
	}

	event, err := NewEvent(TypeTaskEscalated, payload, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeTaskEscalated, event.Type)
	assert.Equal(t, testNow, event.CreatedAt)

	var decoded TaskPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent(TypeTaskMissed, map[string]interface{}{"bad": make(chan int)}, testNow)
	assert.Error(t, err)
}

func TestEventHandlerFunc(t *testing.T) {
	t.Parallel()

	var got *Event
	var handler EventHandler = EventHandlerFunc(func(ctx context.Context, event *Event) error {
		got = event
		return nil
	})

	event, err := NewEvent(TypeTaskMissed, TaskPayload{}, testNow)
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)
}
