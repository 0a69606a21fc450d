package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// Macro indicator keys with dedicated adjustment rules.
const (
	MacroCPIYoY     = "cpi_yoy"
	MacroPMI        = "pmi"
	MacroPolicyRate = "policy_rate"
	MacroGDPGrowth  = "gdp_growth"
)

// Inputs are the pre-fetched reads one scoring run consumes. Feature and
// macro maps hold the latest value per name/key; Events hold the issuer's
// records, which the engine filters by window and decay floor itself.
type Inputs struct {
	Features map[string]float64
	Events   []model.EventRecord
	Macros   map[string]float64
	AsOf     time.Time
}

// Engine computes scores from inputs. It holds no mutable state and is
// safe for concurrent use; every invocation is a pure function of its
// inputs and the immutable Config.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the default parameter set, then applies
// options.
func NewEngine(opts ...Option) *Engine {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{cfg: cfg}
}

// Config returns a copy of the engine's parameter set.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.BaseFeatures = copyWeights(e.cfg.BaseFeatures)
	cfg.MarketFeatures = copyWeights(e.cfg.MarketFeatures)
	cfg.Thresholds = append([]Threshold(nil), e.cfg.Thresholds...)
	return cfg
}

// FeatureNames returns the whitelist of feature names the engine reads,
// sorted for deterministic queries.
func (e *Engine) FeatureNames() []string {
	names := make([]string, 0, len(e.cfg.BaseFeatures)+len(e.cfg.MarketFeatures))
	for name := range e.cfg.BaseFeatures {
		names = append(names, name)
	}
	for name := range e.cfg.MarketFeatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Score runs the full pipeline for one issuer: component scorers,
// aggregation, classification and explanation. It never mutates inputs
// and returns the same result for byte-identical inputs (timestamps
// aside).
func (e *Engine) Score(ctx context.Context, issuerID string, in Inputs) (model.ScoreResult, error) {
	select {
	case <-ctx.Done():
		return model.ScoreResult{}, fmt.Errorf("score %s: %w", issuerID, ctx.Err())
	default:
	}

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	base, baseContribs := e.baseScore(in.Features)
	market, marketContribs := e.marketScore(in.Features)
	event, eventContribs := e.eventScore(in.Events, asOf)
	macro, macroContribs := e.macroScore(in.Macros)

	raw := e.cfg.Weights.Base*base +
		e.cfg.Weights.Market*market +
		e.cfg.Weights.Event*event +
		e.cfg.Weights.Macro*macro

	score := clamp(100*sigmoid(raw), 0, 100)

	return model.ScoreResult{
		IssuerID:     issuerID,
		ComputedAt:   asOf,
		Score:        score,
		Bucket:       e.Bucket(score),
		Base:         base,
		Market:       market,
		EventDelta:   event,
		MacroAdj:     macro,
		ModelVersion: e.cfg.ModelVersion,
		Components: model.ScoreComponents{
			Base:                base,
			Market:              market,
			Event:               event,
			Macro:               macro,
			BaseContributions:   baseContribs,
			MarketContributions: marketContribs,
			EventContributions:  eventContribs,
			MacroContributions:  macroContribs,
		},
		Explanation: e.explain(baseContribs, marketContribs, eventContribs),
	}, nil
}

// Bucket maps a final score to its rating bucket. Total and deterministic:
// thresholds are evaluated top-down, first match wins, anything below the
// table falls through to the fallback bucket.
func (e *Engine) Bucket(score float64) model.Bucket {
	for _, t := range e.cfg.Thresholds {
		if score >= t.Min {
			return t.Bucket
		}
	}
	return e.cfg.Fallback
}

// baseScore sums the weighted, normalized fundamental ratios. A missing
// category yields 0 with no contributions.
func (e *Engine) baseScore(features map[string]float64) (float64, []model.Contribution) {
	return e.weightedScore(features, e.cfg.BaseFeatures, +1)
}

// marketScore sums the weighted market-risk features with inverted sign:
// higher risk pushes the subscore down.
func (e *Engine) marketScore(features map[string]float64) (float64, []model.Contribution) {
	return e.weightedScore(features, e.cfg.MarketFeatures, -1)
}

func (e *Engine) weightedScore(features, weights map[string]float64, sign float64) (float64, []model.Contribution) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		if _, ok := features[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return 0.0, nil
	}

	total := 0.0
	contribs := make([]model.Contribution, 0, len(names))
	for _, name := range names {
		value := features[name]
		normalized := Normalize(value, name)
		weight := weights[name]
		contribution := sign * normalized * weight
		total += contribution
		contribs = append(contribs, model.Contribution{
			Name:         name,
			Value:        value,
			Normalized:   normalized,
			Weight:       weight,
			Contribution: contribution,
		})
	}
	return total, contribs
}

// eventScore sums the decayed impacts of events inside the active window,
// rescales by the divisor and clips to the category bound. Events at or
// below the decay floor, or outside the window, are excluded entirely.
func (e *Engine) eventScore(events []model.EventRecord, asOf time.Time) (float64, []model.EventContribution) {
	cutoff := asOf.Add(-e.cfg.EventWindow)

	total := 0.0
	var contribs []model.EventContribution
	for _, ev := range events {
		if ev.DecayFactor <= e.cfg.DecayFloor {
			continue
		}
		if ev.OccurredAt.Before(cutoff) || ev.OccurredAt.After(asOf) {
			continue
		}
		effective := ev.EffectiveWeight()
		total += effective
		contribs = append(contribs, model.EventContribution{
			Type:            ev.Type,
			Sentiment:       ev.Sentiment,
			Weight:          ev.Weight,
			DecayFactor:     ev.DecayFactor,
			EffectiveWeight: effective,
			Headline:        ev.Headline,
			URL:             ev.URL,
			OccurredAt:      ev.OccurredAt,
		})
	}

	if len(contribs) == 0 {
		return 0.0, nil
	}
	return clamp(total/e.cfg.EventDivisor, e.cfg.EventFloor, e.cfg.EventCeil), contribs
}

// macroScore applies small fixed step adjustments per indicator and clips
// the sum to the category bound.
func (e *Engine) macroScore(macros map[string]float64) (float64, []model.MacroContribution) {
	keys := make([]string, 0, len(macros))
	for key := range macros {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return 0.0, nil
	}

	total := 0.0
	contribs := make([]model.MacroContribution, 0, len(keys))
	for _, key := range keys {
		value := macros[key]
		adjustment := macroAdjustment(key, value)
		total += adjustment
		contribs = append(contribs, model.MacroContribution{
			Indicator:  key,
			Value:      value,
			Adjustment: adjustment,
		})
	}
	return clamp(total, e.cfg.MacroFloor, e.cfg.MacroCeil), contribs
}

func macroAdjustment(key string, value float64) float64 {
	switch key {
	case MacroCPIYoY:
		// High inflation is negative for credit.
		if value > 3.0 {
			return -0.1
		}
		return 0.0
	case MacroPMI:
		// Expansionary PMI is positive, contractionary negative.
		if value > 50 {
			return 0.1
		}
		return -0.1
	case MacroPolicyRate:
		if value > 5.0 {
			return -0.05
		}
		return 0.0
	case MacroGDPGrowth:
		if value > 2.0 {
			return 0.1
		}
		return -0.1
	default:
		return 0.0
	}
}
