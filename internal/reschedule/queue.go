package reschedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the UserQueue
var (
	ErrQueueClosed = errors.New("reschedule queue is closed")
	ErrQueueFull   = errors.New("reschedule queue is full")
)

// UserQueue is a buffered queue of users waiting for a reschedule run.
// A user that is already waiting is not queued twice.
type UserQueue struct {
	mu      sync.Mutex
	users   chan uuid.UUID
	pending map[uuid.UUID]struct{}
	closed  bool
	logger  *slog.Logger
}

// NewUserQueue creates a queue that holds at most size waiting users.
func NewUserQueue(size int, logger *slog.Logger) *UserQueue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserQueue{
		users:   make(chan uuid.UUID, size),
		pending: make(map[uuid.UUID]struct{}, size),
		logger:  logger,
	}
}

// Enqueue adds a user to the queue. It reports false when the user was
// already waiting and the request was folded into the earlier one.
// Returns an error if the queue is full or closed.
func (q *UserQueue) Enqueue(userID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}
	if _, ok := q.pending[userID]; ok {
		q.logger.Debug("reschedule already queued", slog.String("user_id", userID.String()))
		return false, nil
	}

	select {
	case q.users <- userID:
		q.pending[userID] = struct{}{}
		q.logger.Debug("reschedule enqueued",
			slog.String("user_id", userID.String()),
			slog.Int("queue_len", len(q.users)),
			slog.Int("queue_cap", cap(q.users)))
		return true, nil
	default:
		return false, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.users))
	}
}

// Next blocks until a user is available, the queue is closed and drained, or
// ctx is done. The returned user is no longer considered pending, so a
// trigger arriving while its run is in flight queues a fresh run.
func (q *UserQueue) Next(ctx context.Context) (uuid.UUID, bool) {
	select {
	case <-ctx.Done():
		return uuid.Nil, false
	case userID, ok := <-q.users:
		if !ok {
			return uuid.Nil, false
		}
		q.mu.Lock()
		delete(q.pending, userID)
		q.mu.Unlock()
		return userID, true
	}
}

// Len returns the number of users waiting.
func (q *UserQueue) Len() int {
	return len(q.users)
}

// Close stops the queue from accepting users. Users already waiting can
// still be taken with Next.
func (q *UserQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.users)
		q.logger.Info("reschedule queue closed")
	}
}
