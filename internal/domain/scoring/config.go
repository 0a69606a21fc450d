// Package scoring implements the credit score computation engine: feature
// normalization, the four component scorers, event decay aggregation, the
// sigmoid score aggregator, bucket classification and explanations.
package scoring

import (
	"time"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// Default model parameters. These are the audited v1.0 values; runtime
// configuration may override any of them through Options.
const (
	defaultEventDivisor = 10.0
	defaultEventFloor   = -1.5
	defaultEventCeil    = 1.0
	defaultMacroFloor   = -0.3
	defaultMacroCeil    = 0.3
	defaultEventWindow  = 7 * 24 * time.Hour
	defaultDecayFloor   = 0.1
	defaultTopFeatures  = 5
	defaultModelVersion = "v1.0"
)

// CategoryWeights are the fixed weights combining the four subscores.
// They must sum to 1.0.
type CategoryWeights struct {
	Base   float64
	Market float64
	Event  float64
	Macro  float64
}

// Threshold maps a minimum score to a rating bucket. Tables are evaluated
// top-down; the first matching entry wins.
type Threshold struct {
	Min    float64
	Bucket model.Bucket
}

// Config holds every model parameter the engine consumes. It is immutable
// once the engine is constructed, so historical parameter sets can be
// replayed for backtesting.
type Config struct {
	Weights        CategoryWeights
	BaseFeatures   map[string]float64 // feature name -> weight within category
	MarketFeatures map[string]float64

	EventDivisor float64
	EventFloor   float64
	EventCeil    float64

	MacroFloor float64
	MacroCeil  float64

	EventWindow time.Duration
	DecayFloor  float64

	TopFeatures int
	Thresholds  []Threshold // ordered by Min descending
	Fallback    model.Bucket

	ModelVersion string
}

// DefaultConfig returns the v1.0 parameter set.
func DefaultConfig() Config {
	return Config{
		Weights: CategoryWeights{Base: 0.55, Market: 0.25, Event: 0.12, Macro: 0.08},
		BaseFeatures: map[string]float64{
			FeatureICR:          0.3,
			FeatureDebtToEBITDA: 0.25,
			FeatureCurrentRatio: 0.2,
			FeatureRevenueYoY:   0.15,
			FeatureAltmanZ:      0.1,
		},
		MarketFeatures: map[string]float64{
			FeatureVolatility30d:  0.5,
			FeatureMaxDrawdown30d: 0.3,
			FeatureBeta180d:       0.2,
		},
		EventDivisor: defaultEventDivisor,
		EventFloor:   defaultEventFloor,
		EventCeil:    defaultEventCeil,
		MacroFloor:   defaultMacroFloor,
		MacroCeil:    defaultMacroCeil,
		EventWindow:  defaultEventWindow,
		DecayFloor:   defaultDecayFloor,
		TopFeatures:  defaultTopFeatures,
		Thresholds: []Threshold{
			{Min: 90, Bucket: model.BucketAAA},
			{Min: 80, Bucket: model.BucketAA},
			{Min: 70, Bucket: model.BucketBBB},
			{Min: 60, Bucket: model.BucketBB},
			{Min: 50, Bucket: model.BucketB},
			{Min: 30, Bucket: model.BucketCCC},
		},
		Fallback:     model.BucketCC,
		ModelVersion: defaultModelVersion,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Config)

// WithCategoryWeights sets the four category weights.
func WithCategoryWeights(w CategoryWeights) Option {
	return func(c *Config) {
		c.Weights = w
	}
}

// WithBaseFeatureWeights replaces the base (fundamentals) feature weights.
func WithBaseFeatureWeights(weights map[string]float64) Option {
	return func(c *Config) {
		if len(weights) > 0 {
			c.BaseFeatures = copyWeights(weights)
		}
	}
}

// WithMarketFeatureWeights replaces the market-risk feature weights.
func WithMarketFeatureWeights(weights map[string]float64) Option {
	return func(c *Config) {
		if len(weights) > 0 {
			c.MarketFeatures = copyWeights(weights)
		}
	}
}

// WithEventWindow sets the active event window.
func WithEventWindow(window time.Duration) Option {
	return func(c *Config) {
		if window > 0 {
			c.EventWindow = window
		}
	}
}

// WithDecayFloor sets the decay factor below which events are ignored.
func WithDecayFloor(floor float64) Option {
	return func(c *Config) {
		if floor >= 0 && floor < 1 {
			c.DecayFloor = floor
		}
	}
}

// WithThresholds replaces the bucket threshold table. Entries must be
// ordered by Min descending.
func WithThresholds(thresholds []Threshold, fallback model.Bucket) Option {
	return func(c *Config) {
		if len(thresholds) > 0 {
			c.Thresholds = append([]Threshold(nil), thresholds...)
			c.Fallback = fallback
		}
	}
}

// WithTopFeatureCount sets how many drivers the explanation keeps.
func WithTopFeatureCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.TopFeatures = n
		}
	}
}

// WithModelVersion tags results with a model version string.
func WithModelVersion(version string) Option {
	return func(c *Config) {
		if version != "" {
			c.ModelVersion = version
		}
	}
}

func copyWeights(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		if v > 0 {
			dst[k] = v
		}
	}
	return dst
}
