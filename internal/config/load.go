package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TASKPILOT"

// setDefaults registers the value of every key that has one. Registering a
// key is also what lets AutomaticEnv bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("scheduler.priority_weight", 0.4)
	v.SetDefault("scheduler.urgency_weight", 0.4)
	v.SetDefault("scheduler.complexity_weight", 0.2)
	v.SetDefault("scheduler.tie_epsilon", 0.1)
	v.SetDefault("scheduler.default_duration_minutes", 30)
	v.SetDefault("scheduler.score_cache_size", 1024)

	v.SetDefault("rescheduler.threshold", 3)
	v.SetDefault("rescheduler.interval", "1m")
	v.SetDefault("rescheduler.workers", 2)
	v.SetDefault("rescheduler.queue_size", 256)
	v.SetDefault("rescheduler.sweep_concurrency", 4)
	v.SetDefault("rescheduler.run_timeout", "30s")
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory or ./config.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// default locations and tolerates a missing file.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
