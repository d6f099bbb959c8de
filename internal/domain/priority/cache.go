package priority

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CachedScore is the last score computed for a task.
type CachedScore struct {
	TaskID      uuid.UUID
	Breakdown   Breakdown
	EvaluatedAt time.Time
}

// ScoreCache keeps the last score per task for debugging and observability.
// It is never consulted when ordering; every schedule call rescores from scratch.
//
// Eviction is first-in first-out by first insertion: order is a ring of task
// IDs and next points at the slot to overwrite once the ring is full.
// Re-putting a cached task updates its entry without moving it.
type ScoreCache struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]CachedScore
	order    []uuid.UUID
	next     int
	capacity int
}

// NewScoreCache creates a cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultScoreCacheSize.
func NewScoreCache(capacity int) *ScoreCache {
	if capacity <= 0 {
		capacity = DefaultScoreCacheSize
	}
	return &ScoreCache{
		entries:  make(map[uuid.UUID]CachedScore),
		order:    make([]uuid.UUID, 0, capacity),
		capacity: capacity,
	}
}

// Put records a score, evicting the earliest inserted task when the cache is
// full.
func (c *ScoreCache) Put(entry CachedScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[entry.TaskID]; !exists {
		if len(c.order) < c.capacity {
			c.order = append(c.order, entry.TaskID)
		} else {
			delete(c.entries, c.order[c.next])
			c.order[c.next] = entry.TaskID
			c.next = (c.next + 1) % c.capacity
		}
	}
	c.entries[entry.TaskID] = entry
}

// Get returns the last score recorded for a task.
func (c *ScoreCache) Get(taskID uuid.UUID) (CachedScore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[taskID]
	return entry, ok
}

// Len returns the number of cached entries.
func (c *ScoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
