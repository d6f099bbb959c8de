// Package service contains the application use cases built on top of the
// prioritization engine.
//
// The engine in internal/domain/priority is pure: it takes task snapshots and
// a reference time and returns data. The services here supply both. They read
// snapshots through a TaskRepository, capture the reference time once per
// operation, persist what the engine decided inside a transaction and emit
// events for outcomes a user has to hear about.
//
// Key components:
//
//   - ScheduleService: ranks a user's stored tasks and records the ranking
//   - RescheduleService: the per-user run driven by the reschedule runner
//   - TaskRepositoryAdapter: binds a store.TaskStore to its *sql.DB for transactions
package service
