package config

import (
	"time"

	"github.com/phrazzld/taskpilot/internal/domain/priority"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	Rescheduler ReschedulerConfig `mapstructure:"rescheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// SchedulerConfig tunes the scoring model and the ordering of tasks.
type SchedulerConfig struct {
	PriorityWeight         float64 `mapstructure:"priority_weight" validate:"gt=0"`
	UrgencyWeight          float64 `mapstructure:"urgency_weight" validate:"gt=0"`
	ComplexityWeight       float64 `mapstructure:"complexity_weight" validate:"gt=0"`
	TieEpsilon             float64 `mapstructure:"tie_epsilon" validate:"gt=0"`
	DefaultDurationMinutes int     `mapstructure:"default_duration_minutes" validate:"gte=1"`
	ScoreCacheSize         int     `mapstructure:"score_cache_size" validate:"gte=1"`
}

// ReschedulerConfig controls the background rescheduling runner.
type ReschedulerConfig struct {
	Threshold        int           `mapstructure:"threshold" validate:"gte=1"`
	Interval         time.Duration `mapstructure:"interval" validate:"gt=0"`
	Workers          int           `mapstructure:"workers" validate:"gte=1"`
	QueueSize        int           `mapstructure:"queue_size" validate:"gte=1"`
	SweepConcurrency int           `mapstructure:"sweep_concurrency" validate:"gte=1"`
	RunTimeout       time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
}

// PriorityParams converts the scheduler and rescheduler settings into
// engine parameters.
func (c *Config) PriorityParams() *priority.Params {
	return priority.NewParams(priority.ParamsConfig{
		PriorityWeight:         c.Scheduler.PriorityWeight,
		UrgencyWeight:          c.Scheduler.UrgencyWeight,
		ComplexityWeight:       c.Scheduler.ComplexityWeight,
		DefaultDurationMinutes: c.Scheduler.DefaultDurationMinutes,
		TieEpsilon:             c.Scheduler.TieEpsilon,
		RescheduleThreshold:    c.Rescheduler.Threshold,
		ScoreCacheSize:         c.Scheduler.ScoreCacheSize,
	})
}
