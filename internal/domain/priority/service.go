package priority

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
)

// Common errors
var (
	ErrNilTask    = errors.New("task cannot be nil")
	ErrNotMissed  = errors.New("only missed tasks can be re-slotted")
	ErrEscalated  = errors.New("task is awaiting a user decision")
	ErrSlotInPast = errors.New("new due date must be after now")
)

// Service defines the interface for task prioritization operations.
// Every operation takes the reference time explicitly and never reads a clock.
type Service interface {
	// Score computes the weighted priority score of a single task
	Score(task *domain.Task, now time.Time) (float64, error)

	// Breakdown computes the score together with its three sub-scores
	Breakdown(task *domain.Task, now time.Time) (Breakdown, error)

	// Schedule orders the schedulable tasks of a batch, highest priority first
	Schedule(tasks []domain.Task, now time.Time) ([]uuid.UUID, error)

	// EvaluateReschedule decides whether a task has missed its due point,
	// using the configured reschedule threshold
	EvaluateReschedule(task *domain.Task, now time.Time) (Decision, error)

	// Reslot moves a missed task back to pending with a new due date
	Reslot(task *domain.Task, newDueAt, now time.Time) (*domain.Task, error)

	// LastScore returns the most recent score computed for a task, if any
	LastScore(taskID uuid.UUID) (CachedScore, bool)

	// Params returns the parameters the service was built with
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
	cache  *ScoreCache
}

// NewDefaultService creates a new prioritization service with default parameters
func NewDefaultService() Service {
	return NewServiceWithParams(NewDefaultParams())
}

// NewServiceWithParams creates a new prioritization service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
		cache:  NewScoreCache(params.ScoreCacheSize),
	}
}

// Score returns the weighted score of a task against now.
func Score(task *domain.Task, now time.Time) (float64, error) {
	if task == nil {
		return 0, ErrNilTask
	}
	b, err := scoreTask(task, now, NewDefaultParams())
	return b.Score, err
}

// Schedule orders a batch of tasks using the default parameters.
func Schedule(tasks []domain.Task, now time.Time) ([]uuid.UUID, error) {
	return scheduleTasks(tasks, now, NewDefaultParams(), nil)
}

// EvaluateReschedule decides the reschedule outcome of a task for the given
// threshold. A non-positive threshold uses DefaultRescheduleThreshold.
// task must not be nil. A snapshot that fails validation is left unchanged
// with ReasonInvalidTask.
func EvaluateReschedule(task *domain.Task, now time.Time, threshold int) Decision {
	if threshold <= 0 {
		threshold = DefaultRescheduleThreshold
	}
	return evaluateReschedule(task, now, threshold)
}

// Reslot moves a missed task back to pending, judging escalation against the
// given threshold. A non-positive threshold uses DefaultRescheduleThreshold.
func Reslot(task *domain.Task, newDueAt, now time.Time, threshold int) (*domain.Task, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if threshold <= 0 {
		threshold = DefaultRescheduleThreshold
	}
	return reslotTask(task, newDueAt, now, threshold)
}

// Score implements the Service interface
func (s *defaultService) Score(task *domain.Task, now time.Time) (float64, error) {
	b, err := s.Breakdown(task, now)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}

// Breakdown implements the Service interface
func (s *defaultService) Breakdown(task *domain.Task, now time.Time) (Breakdown, error) {
	if task == nil {
		return Breakdown{}, ErrNilTask
	}

	b, err := scoreTask(task, now, s.params)
	if err != nil {
		return Breakdown{}, err
	}

	s.cache.Put(CachedScore{TaskID: task.ID, Breakdown: b, EvaluatedAt: now})
	return b, nil
}

// Schedule implements the Service interface
func (s *defaultService) Schedule(tasks []domain.Task, now time.Time) ([]uuid.UUID, error) {
	return scheduleTasks(tasks, now, s.params, s.cache.Put)
}

// EvaluateReschedule implements the Service interface
func (s *defaultService) EvaluateReschedule(task *domain.Task, now time.Time) (Decision, error) {
	if task == nil {
		return Decision{}, ErrNilTask
	}
	return evaluateReschedule(task, now, s.params.RescheduleThreshold), nil
}

// Reslot implements the Service interface
func (s *defaultService) Reslot(task *domain.Task, newDueAt, now time.Time) (*domain.Task, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	return reslotTask(task, newDueAt, now, s.params.RescheduleThreshold)
}

// LastScore implements the Service interface
func (s *defaultService) LastScore(taskID uuid.UUID) (CachedScore, bool) {
	return s.cache.Get(taskID)
}

// Params implements the Service interface
func (s *defaultService) Params() Params {
	return *s.params
}
