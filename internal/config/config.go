// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RecomputeCron schedules the batch recompute sweep.
	RecomputeCron string `koanf:"recompute_cron"`

	// DecayCron schedules the event decay refresh.
	DecayCron string `koanf:"decay_cron"`

	// ModelVersion tags score records.
	ModelVersion string `koanf:"model_version"`

	// CategoryWeights combine the four subscores; keys are base, market,
	// event, macro and values must sum to 1.0.
	CategoryWeights map[string]float64 `koanf:"category_weights"`

	// BaseFeatureWeights and MarketFeatureWeights override the per-feature
	// weights within their categories.
	BaseFeatureWeights   map[string]float64 `koanf:"base_feature_weights"`
	MarketFeatureWeights map[string]float64 `koanf:"market_feature_weights"`

	// EventWindowDays sets the active event window.
	EventWindowDays int `koanf:"event_window_days"`

	// DecayFloor is the decay factor below which events are ignored.
	DecayFloor float64 `koanf:"decay_floor"`

	// TopFeatureCount sets how many drivers the explanation keeps.
	TopFeatureCount int `koanf:"top_feature_count"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":9080",
		DBPath:        "blackswan.db",
		QueueSize:     100_000,
		WorkerCount:   runtime.NumCPU() * 2,
		DedupeSize:    50_000,
		RecomputeCron: "0 6 * * *",
		DecayCron:     "0 * * * *",
		CategoryWeights: map[string]float64{
			"base":   0.55,
			"market": 0.25,
			"event":  0.12,
			"macro":  0.08,
		},
		EventWindowDays: 7,
		DecayFloor:      0.1,
		TopFeatureCount: 5,
	}
}

const weightSumTolerance = 1e-6

// Validate checks invariants the rest of the system assumes.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.DecayFloor < 0 || c.DecayFloor >= 1 {
		return fmt.Errorf("%w: decay_floor must be within [0, 1)", ErrInvalidConfig)
	}
	if c.EventWindowDays < 1 {
		return fmt.Errorf("%w: event_window_days must be positive", ErrInvalidConfig)
	}
	if len(c.CategoryWeights) > 0 {
		sum := 0.0
		for _, w := range c.CategoryWeights {
			sum += w
		}
		if math.Abs(sum-1.0) > weightSumTolerance {
			return fmt.Errorf("%w: category weights must sum to 1.0, got %v", ErrInvalidConfig, sum)
		}
	}
	return nil
}

// EngineOptions converts the configured model parameters into engine
// options. Unset fields fall through to the engine defaults.
func (c *Config) EngineOptions() []scoring.Option {
	var opts []scoring.Option

	if len(c.CategoryWeights) > 0 {
		opts = append(opts, scoring.WithCategoryWeights(scoring.CategoryWeights{
			Base:   c.CategoryWeights["base"],
			Market: c.CategoryWeights["market"],
			Event:  c.CategoryWeights["event"],
			Macro:  c.CategoryWeights["macro"],
		}))
	}
	if len(c.BaseFeatureWeights) > 0 {
		opts = append(opts, scoring.WithBaseFeatureWeights(c.BaseFeatureWeights))
	}
	if len(c.MarketFeatureWeights) > 0 {
		opts = append(opts, scoring.WithMarketFeatureWeights(c.MarketFeatureWeights))
	}
	if c.EventWindowDays > 0 {
		opts = append(opts, scoring.WithEventWindow(time.Duration(c.EventWindowDays)*24*time.Hour))
	}
	opts = append(opts, scoring.WithDecayFloor(c.DecayFloor))
	if c.TopFeatureCount > 0 {
		opts = append(opts, scoring.WithTopFeatureCount(c.TopFeatureCount))
	}
	if c.ModelVersion != "" {
		opts = append(opts, scoring.WithModelVersion(c.ModelVersion))
	}

	return opts
}
