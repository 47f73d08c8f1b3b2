package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables with the CURATOR_
// prefix, applies defaults and validates the result. Nested keys map to
// underscored variables, e.g. scheduler.decay_factor becomes
// CURATOR_SCHEDULER_DECAY_FACTOR.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scheduler.viewport_boost", 10)
	v.SetDefault("scheduler.intent_boost", 100)
	v.SetDefault("scheduler.decay_factor", 0.95)
	v.SetDefault("scheduler.decay_interval", "5s")

	v.SetDefault("worker.batch_size", 8)
	v.SetDefault("worker.idle_interval", "50ms")

	v.SetDefault("infer.weights_path", "")

	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
