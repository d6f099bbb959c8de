package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/config"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/events"
	"github.com/phrazzld/taskpilot/internal/platform/postgres"
	"github.com/phrazzld/taskpilot/internal/redact"
	"github.com/phrazzld/taskpilot/internal/reschedule"
	"github.com/phrazzld/taskpilot/internal/service"
	"github.com/phrazzld/taskpilot/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore

	engine            priority.Service
	scheduleService   service.ScheduleService
	rescheduleService service.RescheduleService

	eventEmitter events.EventEmitter
	runner       *reschedule.Runner
}

// newApplication wires stores, services and the reschedule runner around an
// established database connection. The runner is created but not started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	taskRepo := service.NewTaskRepositoryAdapter(app.taskStore, db)

	app.engine = priority.NewServiceWithParams(cfg.PriorityParams())
	params := app.engine.Params()
	logger.Info("priority engine initialized",
		slog.Float64("priority_weight", params.PriorityWeight),
		slog.Float64("urgency_weight", params.UrgencyWeight),
		slog.Float64("complexity_weight", params.ComplexityWeight),
		slog.Int("reschedule_threshold", params.RescheduleThreshold))

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLoggingHandler(logger), events.TypeTaskMissed, events.TypeTaskEscalated)
	app.eventEmitter = emitter

	var err error
	app.scheduleService, err = service.NewScheduleService(taskRepo, app.engine, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule service: %w", err)
	}

	app.rescheduleService, err = service.NewRescheduleService(taskRepo, app.engine, app.eventEmitter, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reschedule service: %w", err)
	}

	app.runner = reschedule.NewRunner(app.rescheduleService, app.taskStore, reschedule.Config{
		Interval:         cfg.Rescheduler.Interval,
		Workers:          cfg.Rescheduler.Workers,
		QueueSize:        cfg.Rescheduler.QueueSize,
		SweepConcurrency: cfg.Rescheduler.SweepConcurrency,
		RunTimeout:       cfg.Rescheduler.RunTimeout,
	}, logger)
	app.runner.SetErrorHandler(func(userID uuid.UUID, err error) {
		logger.Error("reschedule run failed",
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
	})

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the reschedule runner and the HTTP server, and blocks until ctx
// is cancelled or the server fails. Resources are released before returning.
func (app *application) Run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start reschedule runner: %w", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}

	if app.db != nil {
		closeDB(app.db, app.logger)
	}

	app.logger.Info("application shutdown completed")
}
