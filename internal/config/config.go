package config

import "time"

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
	Infer     InferConfig     `mapstructure:"infer"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// SchedulerConfig contains the priority queue tunables.
type SchedulerConfig struct {
	// ViewportBoost is added to every task in the attention window.
	ViewportBoost int `mapstructure:"viewport_boost" validate:"required,gt=0"`

	// IntentBoost is added when the user marks an image as important.
	IntentBoost int `mapstructure:"intent_boost" validate:"required,gt=0"`

	// DecayFactor multiplies outstanding priorities on each decay tick.
	DecayFactor float64 `mapstructure:"decay_factor" validate:"required,gt=0,lte=1"`

	// DecayInterval is how often priorities decay and the active strategy
	// rebalances the queue.
	DecayInterval time.Duration `mapstructure:"decay_interval" validate:"required,gt=0"`
}

// WorkerConfig contains the inference worker settings.
type WorkerConfig struct {
	// BatchSize caps how many tasks one worker iteration dequeues.
	BatchSize int `mapstructure:"batch_size" validate:"required,gt=0"`

	// IdleInterval is how long the worker sleeps when the queue is empty
	// and no wake signal arrives.
	IdleInterval time.Duration `mapstructure:"idle_interval" validate:"required,gt=0"`
}

// InferConfig contains the inference engine settings.
type InferConfig struct {
	// WeightsPath points at the binary weight file. When empty or missing,
	// the engine falls back to deterministic dummy weights.
	WeightsPath string `mapstructure:"weights_path"`
}
