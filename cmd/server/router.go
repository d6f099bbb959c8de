package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskpilot/internal/api"
	apiMiddleware "github.com/phrazzld/taskpilot/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	engineHandler := api.NewEngineHandler(app.engine, nil, app.logger)
	userHandler := api.NewUserHandler(app.scheduleService, app.rescheduleService, app.runner, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Stateless engine operations over client-supplied snapshots
		r.Post("/score", engineHandler.Score)
		r.Post("/schedule", engineHandler.Schedule)
		r.Post("/reschedule/evaluate", engineHandler.EvaluateReschedule)
		r.Post("/reschedule/reslot", engineHandler.Reslot)

		// Stored tasks
		r.Get("/users/{id}/schedule", userHandler.GetSchedule)
		r.Post("/users/{id}/reschedule", userHandler.TriggerReschedule)
		r.Post("/users/{id}/tasks/{taskID}/reslot", userHandler.ReslotTask)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
