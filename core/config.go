package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// DefaultCleanupInterval is how often the registry sweeps for idle queues.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultIdleCutoff is how long a queue may stay inactive before the
	// sweep evicts it.
	DefaultIdleCutoff = 30 * time.Minute
)

// QueueConfig holds construction options for a single work queue.
// Zero values are replaced with defaults.
type QueueConfig struct {
	// Capacity bounds the number of admitted-but-unprocessed items.
	// Zero or negative means unbounded.
	Capacity int

	// WindowSize is the rolling-average window capacity. Defaults to 1000 samples.
	WindowSize int

	// HistorySize is the execution record ring capacity. Defaults to 100 records.
	HistorySize int

	// Logger receives queue lifecycle events. Defaults to a no-op logger.
	Logger zerolog.Logger

	// Metrics receives activity callbacks. Defaults to NilMetrics.
	Metrics Metrics
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.WindowSize < 1 {
		c.WindowSize = defaultWindowCapacity
	}
	if c.HistorySize < 1 {
		c.HistorySize = defaultHistoryCapacity
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	return c
}

// RegistryConfig holds configuration options for a QueueRegistry.
// All fields are optional; DefaultRegistryConfig returns the stated defaults.
type RegistryConfig struct {
	// Capacity is the per-queue admission bound. Zero or negative means unbounded.
	Capacity int

	// WindowSize is the per-queue rolling-average window capacity.
	WindowSize int

	// HistorySize is the per-queue execution record ring capacity.
	HistorySize int

	// CleanupInterval is the idle-sweep period. Defaults to 5 minutes.
	CleanupInterval time.Duration

	// IdleCutoff is the inactivity threshold for eviction. Defaults to
	// 30 minutes; a negative value is normalized to its absolute value.
	IdleCutoff time.Duration

	// Prioritized selects priority-ordered queues. Execute submits at
	// PriorityNormal; ExecuteWithPriority and CancelByPriority require
	// this mode.
	Prioritized bool

	// Logger receives registry and queue lifecycle events. Defaults to a no-op logger.
	Logger zerolog.Logger

	// Metrics receives activity callbacks for every queue. Defaults to NilMetrics.
	Metrics Metrics
}

// DefaultRegistryConfig returns a config with the documented defaults:
// unbounded queues, 1000-sample window, 5 minute sweep, 30 minute cutoff.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		WindowSize:      defaultWindowCapacity,
		HistorySize:     defaultHistoryCapacity,
		CleanupInterval: DefaultCleanupInterval,
		IdleCutoff:      DefaultIdleCutoff,
		Logger:          zerolog.Nop(),
		Metrics:         &NilMetrics{},
	}
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.IdleCutoff == 0 {
		c.IdleCutoff = DefaultIdleCutoff
	}
	if c.IdleCutoff < 0 {
		// A negative cutoff is treated as its absolute value.
		c.IdleCutoff = -c.IdleCutoff
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	return c
}

func (c RegistryConfig) queueConfig() QueueConfig {
	return QueueConfig{
		Capacity:    c.Capacity,
		WindowSize:  c.WindowSize,
		HistorySize: c.HistorySize,
		Logger:      c.Logger,
		Metrics:     c.Metrics,
	}
}

// =============================================================================
// Environment loading
// =============================================================================

type envRegistryConfig struct {
	Capacity        int           `env:"ENDPOINT_QUEUE_CAPACITY" envDefault:"0"`
	WindowSize      int           `env:"ENDPOINT_QUEUE_WINDOW_SIZE" envDefault:"1000"`
	HistorySize     int           `env:"ENDPOINT_QUEUE_HISTORY_SIZE" envDefault:"100"`
	CleanupInterval time.Duration `env:"ENDPOINT_QUEUE_CLEANUP_INTERVAL" envDefault:"5m"`
	IdleCutoff      time.Duration `env:"ENDPOINT_QUEUE_IDLE_CUTOFF" envDefault:"30m"`
	Prioritized     bool          `env:"ENDPOINT_QUEUE_PRIORITIZED" envDefault:"false"`
}

var defaultEnvLoaded sync.Once

// RegistryConfigFromEnv builds a RegistryConfig from ENDPOINT_QUEUE_*
// environment variables, loading a .env file once if present. Logger
// and Metrics stay at their defaults and can be set on the returned
// config afterwards.
func RegistryConfigFromEnv() (RegistryConfig, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	var raw envRegistryConfig
	if err := env.Parse(&raw); err != nil {
		return RegistryConfig{}, fmt.Errorf("parse registry config from environment: %w", err)
	}

	cfg := DefaultRegistryConfig()
	cfg.Capacity = raw.Capacity
	cfg.WindowSize = raw.WindowSize
	cfg.HistorySize = raw.HistorySize
	cfg.CleanupInterval = raw.CleanupInterval
	cfg.IdleCutoff = raw.IdleCutoff
	cfg.Prioritized = raw.Prioritized
	return cfg, nil
}
