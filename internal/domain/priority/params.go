// Package priority implements the task engine: the scoring model, the
// deterministic scheduler and the rescheduling state machine. Every operation
// is a pure function of its inputs and an injected reference time.
package priority

import "github.com/phrazzld/taskpilot/internal/domain"

// Default weights, tolerance and threshold of the engine.
const (
	DefaultPriorityWeight   = 0.4
	DefaultUrgencyWeight    = 0.4
	DefaultComplexityWeight = 0.2

	// DefaultTieEpsilon is the score distance under which two tasks are
	// ordered by due date instead of by score.
	DefaultTieEpsilon = 0.1

	// DefaultRescheduleThreshold is the reschedule count at which the next
	// miss escalates to the user instead of being re-slotted.
	DefaultRescheduleThreshold = 3

	// DefaultScoreCacheSize bounds the observability cache of last scores.
	DefaultScoreCacheSize = 1024
)

// Params defines all configurable parameters of the scoring, ordering and
// rescheduling algorithms.
type Params struct {
	// Score combination weights
	PriorityWeight   float64
	UrgencyWeight    float64
	ComplexityWeight float64

	// Duration assumed for tasks without an estimate
	DefaultDurationMinutes int

	// Ordering
	TieEpsilon float64

	// Rescheduling
	RescheduleThreshold int

	// Observability
	ScoreCacheSize int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	PriorityWeight   float64
	UrgencyWeight    float64
	ComplexityWeight float64

	DefaultDurationMinutes int

	TieEpsilon float64

	RescheduleThreshold int

	ScoreCacheSize int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		PriorityWeight:         DefaultPriorityWeight,
		UrgencyWeight:          DefaultUrgencyWeight,
		ComplexityWeight:       DefaultComplexityWeight,
		DefaultDurationMinutes: domain.DefaultDurationMinutes,
		TieEpsilon:             DefaultTieEpsilon,
		RescheduleThreshold:    DefaultRescheduleThreshold,
		ScoreCacheSize:         DefaultScoreCacheSize,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override weights if provided
	if config.PriorityWeight > 0 {
		params.PriorityWeight = config.PriorityWeight
	}
	if config.UrgencyWeight > 0 {
		params.UrgencyWeight = config.UrgencyWeight
	}
	if config.ComplexityWeight > 0 {
		params.ComplexityWeight = config.ComplexityWeight
	}

	if config.DefaultDurationMinutes > 0 {
		params.DefaultDurationMinutes = config.DefaultDurationMinutes
	}

	if config.TieEpsilon > 0 {
		params.TieEpsilon = config.TieEpsilon
	}

	if config.RescheduleThreshold > 0 {
		params.RescheduleThreshold = config.RescheduleThreshold
	}

	if config.ScoreCacheSize > 0 {
		params.ScoreCacheSize = config.ScoreCacheSize
	}

	return params
}
