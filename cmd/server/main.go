// Package main implements the entry point for the taskpilot server, which
// ranks users' tasks and reschedules the ones that miss their due point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskpilot/internal/config"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional)")
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		slog.Error("taskpilot exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, sets up logging, and either executes a migration
// command or serves until SIGINT/SIGTERM.
func run(configPath, migrateCmd string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Duration("reschedule_interval", cfg.Rescheduler.Interval),
		slog.Int("reschedule_threshold", cfg.Rescheduler.Threshold))

	db, err := setupAppDatabase(cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer closeDB(db, log)
		return runMigrations(context.Background(), db, migrateCmd, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(cfg, log, db)
	if err != nil {
		closeDB(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
