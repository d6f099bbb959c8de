package reschedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned when Start is called on a running Runner.
var ErrAlreadyStarted = errors.New("reschedule runner already started")

// Summary counts what a single reschedule run did for one user.
type Summary struct {
	UserID    uuid.UUID
	Evaluated int
	Missed    int
	Escalated int
	// Skipped counts tasks that changed between evaluation and persistence.
	Skipped int
}

// Changed reports whether the run persisted any transition.
func (s Summary) Changed() bool {
	return s.Missed+s.Escalated > 0
}

// UserRunner performs one reschedule run for a user.
type UserRunner interface {
	RunForUser(ctx context.Context, userID uuid.UUID) (Summary, error)
}

// OverdueUserLister finds the users a periodic sweep has to visit.
type OverdueUserLister interface {
	ListUsersWithOverdueTasks(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// Config holds configuration for the Runner
type Config struct {
	// Interval is the time between two periodic sweeps
	Interval time.Duration

	// Workers determines how many goroutines drain on-demand triggers
	Workers int

	// QueueSize is the number of distinct users that can wait for a triggered run
	QueueSize int

	// SweepConcurrency bounds the number of users a sweep runs at once
	SweepConcurrency int

	// RunTimeout bounds a single user run
	RunTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Interval:         time.Minute,
		Workers:          2,
		QueueSize:        256,
		SweepConcurrency: 4,
		RunTimeout:       30 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = defaults.SweepConcurrency
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}

// Runner drives reschedule runs, periodically for every user with overdue
// tasks and on demand for a single user.
type Runner struct {
	runner     UserRunner
	users      OverdueUserLister
	queue      *UserQueue
	locks      *userLocks
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger
	clock      func() time.Time
	errHandler func(userID uuid.UUID, err error)
	started    atomic.Bool
	stopOnce   sync.Once
}

// NewRunner creates a new Runner. Zero config fields take their defaults.
func NewRunner(runner UserRunner, users OverdueUserLister, config Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "reschedule_runner"))
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		runner:     runner,
		users:      users,
		queue:      NewUserQueue(config.QueueSize, log),
		locks:      newUserLocks(),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     log,
		clock:      time.Now,
	}
	r.errHandler = func(userID uuid.UUID, err error) {
		log.Error("reschedule run failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
	return r
}

// SetErrorHandler replaces the function called when a user run fails.
func (r *Runner) SetErrorHandler(handler func(userID uuid.UUID, err error)) {
	r.errHandler = handler
}

// SetClock replaces the clock used to pick the reference time of a sweep.
func (r *Runner) SetClock(clock func() time.Time) {
	r.clock = clock
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.config
}

// Start launches the workers and the periodic sweep. The first sweep runs
// immediately.
func (r *Runner) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.sweepLoop()

	r.logger.Info("reschedule runner started",
		slog.Int("workers", r.config.Workers),
		slog.Duration("interval", r.config.Interval))
	return nil
}

// Stop stops accepting triggers and ends the periodic sweep. Runs already in
// flight are allowed to finish; users still waiting in the queue are dropped.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.queue.Close()
		r.cancelFunc()
		r.wg.Wait()
		r.logger.Info("reschedule runner stopped", slog.Int("dropped", r.queue.Len()))
	})
}

// Trigger queues an on-demand run for one user. Triggers for a user that is
// already waiting are coalesced.
func (r *Runner) Trigger(userID uuid.UUID) error {
	if _, err := r.queue.Enqueue(userID); err != nil {
		return err
	}
	return nil
}

// Sweep runs every user with overdue tasks, at most SweepConcurrency at a
// time. A failing user run is reported to the error handler and does not
// stop the sweep.
func (r *Runner) Sweep(ctx context.Context) error {
	now := r.clock().UTC()

	users, err := r.users.ListUsersWithOverdueTasks(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list users with overdue tasks: %w", err)
	}
	if len(users) == 0 {
		r.logger.Debug("sweep found no overdue tasks")
		return nil
	}

	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.SweepConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.run(gctx, userID); err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	r.logger.Info("sweep finished",
		slog.Int("users", len(users)),
		slog.Int("failed", int(failed.Load())))
	return err
}

// worker processes triggered users from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		userID, ok := r.queue.Next(r.ctx)
		if !ok {
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return
		}
		_ = r.run(r.ctx, userID)
	}
}

// sweepLoop runs Sweep on every tick until the runner stops.
func (r *Runner) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if err := r.Sweep(r.ctx); err != nil && r.ctx.Err() == nil {
			r.logger.Error("sweep failed", slog.String("error", err.Error()))
		}

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// run performs one run for a user while holding the user's lock. The run
// outlives the cancellation of ctx so that Stop lets it finish, but is
// bounded by RunTimeout.
func (r *Runner) run(ctx context.Context, userID uuid.UUID) error {
	unlock := r.locks.Lock(userID)
	defer unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.RunTimeout)
	defer cancel()

	log := r.logger.With(slog.String("user_id", userID.String()))
	runCtx = logger.WithLogger(runCtx, log)

	start := time.Now()
	summary, err := r.runner.RunForUser(runCtx, userID)
	if err != nil {
		r.errHandler(userID, err)
		return err
	}

	log.Debug("reschedule run finished",
		slog.Int("evaluated", summary.Evaluated),
		slog.Int("missed", summary.Missed),
		slog.Int("escalated", summary.Escalated),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", time.Since(start)))
	return nil
}
