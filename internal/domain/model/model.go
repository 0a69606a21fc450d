// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Bucket is a discrete rating label derived from the numeric score.
type Bucket string

// Rating buckets, best to worst.
const (
	BucketAAA Bucket = "AAA"
	BucketAA  Bucket = "AA"
	BucketA   Bucket = "A"
	BucketBBB Bucket = "BBB"
	BucketBB  Bucket = "BB"
	BucketB   Bucket = "B"
	BucketCCC Bucket = "CCC"
	BucketCC  Bucket = "CC"
)

// FeatureValue is one observed value of a named feature for an issuer.
// Records are immutable; the engine always reads the latest value per
// (issuer, feature_name).
type FeatureValue struct {
	IssuerID   string    `json:"issuer_id"`
	Name       string    `json:"feature_name"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
}

// EventRecord is a news/event record tied to an issuer. The decay factor
// starts at 1.0 at ingestion and only ever decreases; events at or below
// the decay floor are excluded from scoring.
type EventRecord struct {
	ID          string    `json:"id"`
	IssuerID    string    `json:"issuer_id"`
	Type        string    `json:"type"`
	Sentiment   float64   `json:"sentiment"`
	Weight      float64   `json:"weight"`
	DecayFactor float64   `json:"decay_factor"`
	Headline    string    `json:"headline"`
	URL         string    `json:"url"`
	OccurredAt  time.Time `json:"ts"`
	Source      string    `json:"source,omitempty"`
}

// EffectiveWeight is the event's raw weight scaled by its decay factor.
func (e EventRecord) EffectiveWeight() float64 {
	return e.Weight * e.DecayFactor
}

// MacroIndicator is a global (not issuer-scoped) economic indicator.
type MacroIndicator struct {
	Key        string    `json:"key"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
}

// Contribution is the signed, weighted portion of a subscore attributable
// to one feature.
type Contribution struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Normalized   float64 `json:"normalized"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// EventContribution is the portion of the event subscore attributable to
// one event, before category clipping.
type EventContribution struct {
	Type            string    `json:"type"`
	Sentiment       float64   `json:"sentiment"`
	Weight          float64   `json:"weight"`
	DecayFactor     float64   `json:"decay_factor"`
	EffectiveWeight float64   `json:"effective_weight"`
	Headline        string    `json:"headline"`
	URL             string    `json:"url"`
	OccurredAt      time.Time `json:"ts"`
}

// MacroContribution is the step adjustment applied for one indicator.
type MacroContribution struct {
	Indicator  string  `json:"indicator"`
	Value      float64 `json:"value"`
	Adjustment float64 `json:"adjustment"`
}

// ScoreComponents carries the four category subscores and the per-input
// contributions behind each of them.
type ScoreComponents struct {
	Base   float64 `json:"base"`
	Market float64 `json:"market"`
	Event  float64 `json:"event"`
	Macro  float64 `json:"macro"`

	BaseContributions   []Contribution      `json:"base_contributions,omitempty"`
	MarketContributions []Contribution      `json:"market_contributions,omitempty"`
	EventContributions  []EventContribution `json:"event_contributions,omitempty"`
	MacroContributions  []MacroContribution `json:"macro_contributions,omitempty"`
}

// FeatureImpact is one ranked driver in the explanation, in score points.
type FeatureImpact struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// EventImpact is one recent event in the explanation.
type EventImpact struct {
	Type     string    `json:"type"`
	Headline string    `json:"headline"`
	Impact   float64   `json:"impact"`
	URL      string    `json:"url"`
	TS       time.Time `json:"ts"`
}

// Explanation is the structured, human-readable account of a score.
type Explanation struct {
	TopFeatures []FeatureImpact `json:"top_features"`
	Events      []EventImpact   `json:"events"`
	Summary     string          `json:"summary"`
}

// ScoreResult is one immutable scoring run for an issuer. Every run
// appends a new record; history is never rewritten.
type ScoreResult struct {
	IssuerID     string          `json:"issuer_id"`
	ComputedAt   time.Time       `json:"computed_at"`
	Score        float64         `json:"score"`
	Bucket       Bucket          `json:"bucket"`
	Base         float64         `json:"base"`
	Market       float64         `json:"market"`
	EventDelta   float64         `json:"event_delta"`
	MacroAdj     float64         `json:"macro_adj"`
	ModelVersion string          `json:"model_version,omitempty"`
	Components   ScoreComponents `json:"-"`
	Explanation  Explanation     `json:"explanation"`
}

// Round1 rounds to one decimal place, the precision used on the wire.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
