package priority

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
)

// rankedTask is the per-task state needed to order a batch.
type rankedTask struct {
	id    uuid.UUID
	score float64
	dueAt *time.Time
}

// dueBefore reports whether a is due before b. Tasks without a due date go
// after those with one; two undated tasks are a tie.
func dueBefore(a, b rankedTask) bool {
	switch {
	case a.dueAt != nil && b.dueAt != nil:
		return a.dueAt.Before(*b.dueAt)
	case a.dueAt != nil:
		return true
	default:
		return false
	}
}

// orderRanked sorts ranked in place, highest score first.
//
// After the score sort, each run of tasks scoring within epsilon of the run's
// first (highest) score is reordered by due date. Groups are measured from
// that anchor, never pairwise, so the result does not depend on input order.
func orderRanked(ranked []rankedTask, epsilon float64) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	for start := 0; start < len(ranked); {
		anchor := ranked[start].score
		end := start + 1
		for end < len(ranked) && anchor-ranked[end].score < epsilon {
			end++
		}

		group := ranked[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			return dueBefore(group[i], group[j])
		})
		start = end
	}
}

// scheduleTasks produces the ordered identifiers of the schedulable tasks.
//
// Algorithm behavior:
//   - Completed and cancelled tasks are dropped before scoring
//   - Every remaining task is scored against the same now
//   - The first invalid task aborts the batch with its *domain.InvalidTaskError
//   - A duplicated ID aborts the batch, since the result must be a permutation
//   - The input slice is never modified
//
// An empty or fully terminal batch yields an empty, non-nil slice. When record
// is non-nil it receives every computed score.
func scheduleTasks(
	tasks []domain.Task,
	now time.Time,
	params *Params,
	record func(CachedScore),
) ([]uuid.UUID, error) {
	ranked := make([]rankedTask, 0, len(tasks))
	seen := make(map[uuid.UUID]struct{}, len(tasks))

	for i := range tasks {
		task := &tasks[i]
		if task.IsTerminal() {
			continue
		}

		if _, dup := seen[task.ID]; dup {
			return nil, domain.NewInvalidTaskError(task.ID, "id", domain.ErrDuplicateTaskID)
		}
		seen[task.ID] = struct{}{}

		b, err := scoreTask(task, now, params)
		if err != nil {
			return nil, err
		}
		if record != nil {
			record(CachedScore{TaskID: task.ID, Breakdown: b, EvaluatedAt: now})
		}

		ranked = append(ranked, rankedTask{
			id:    task.ID,
			score: b.Score,
			dueAt: task.DueAt,
		})
	}

	orderRanked(ranked, params.TieEpsilon)

	ids := make([]uuid.UUID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	return ids, nil
}
