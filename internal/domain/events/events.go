// Package events defines the event-type vocabulary, raw impact weights and
// the decay curve shared by ingestion and the decay refresh job.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// Known event types, roughly ordered by severity.
const (
	TypeBankruptcy            = "bankruptcy"
	TypeRestructuring         = "restructuring"
	TypeDowngrade             = "downgrade"
	TypeEarningsMiss          = "earnings_miss"
	TypeGuidanceCut           = "guidance_cut"
	TypeManagementChange      = "management_change"
	TypeAcquisition           = "acquisition"
	TypePositiveEarningsBeat  = "positive_earnings_beat"
	TypeDividendCut           = "dividend_cut"
	TypeRegulatoryInvestigation = "regulatory_investigation"
	TypeGeneral               = "general"
)

// Sentiment thresholds and modifiers applied on top of the base weight.
const (
	positiveSentimentCutoff = 0.3
	negativeSentimentCutoff = -0.3
	positiveSentimentFactor = 0.5
	negativeSentimentFactor = 1.5
)

// baseWeights carries the raw impact per event type before sentiment
// adjustment and decay.
var baseWeights = map[string]float64{
	TypeBankruptcy:              -9.0,
	TypeRestructuring:           -4.0,
	TypeDowngrade:               -5.0,
	TypeEarningsMiss:            -2.5,
	TypeGuidanceCut:             -3.0,
	TypeManagementChange:        -2.0,
	TypeAcquisition:             1.0,
	TypePositiveEarningsBeat:    2.0,
	TypeDividendCut:             -2.5,
	TypeRegulatoryInvestigation: -3.5,
	TypeGeneral:                 -1.0,
}

// BaseWeight returns the raw impact for an event type. Unknown types get
// the general-news weight.
func BaseWeight(eventType string) float64 {
	if w, ok := baseWeights[eventType]; ok {
		return w
	}
	return baseWeights[TypeGeneral]
}

// Weight computes the raw impact for an event, adjusting the type's base
// weight by headline sentiment: strongly positive sentiment halves the
// impact, strongly negative amplifies it.
func Weight(eventType string, sentiment float64) float64 {
	w := BaseWeight(eventType)
	switch {
	case sentiment > positiveSentimentCutoff:
		w *= positiveSentimentFactor
	case sentiment < negativeSentimentCutoff:
		w *= negativeSentimentFactor
	}
	return w
}

// classifiers map keyword sets to event types; evaluated in order, first
// match wins.
var classifiers = []struct {
	eventType string
	keywords  []string
}{
	{TypeBankruptcy, []string{"bankruptcy", "chapter 11", "chapter 7"}},
	{TypeRestructuring, []string{"restructuring", "debt restructuring", "financial restructuring"}},
	{TypeDowngrade, []string{"downgrade", "credit downgrade", "rating downgrade"}},
	{TypeEarningsMiss, []string{"earnings miss", "missed earnings", "earnings disappointment"}},
	{TypeGuidanceCut, []string{"guidance cut", "lowered guidance", "reduced guidance"}},
	{TypeManagementChange, []string{"ceo resign", "management change", "executive departure"}},
	{TypeAcquisition, []string{"acquisition", "merger", "buyout"}},
	{TypePositiveEarningsBeat, []string{"earnings beat", "strong earnings", "earnings surprise"}},
	{TypeDividendCut, []string{"dividend cut", "dividend suspension", "dividend reduction"}},
	{TypeRegulatoryInvestigation, []string{"sec investigation", "regulatory probe", "regulatory investigation"}},
}

// Classify derives an event type from headline text.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, c := range classifiers {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.eventType
			}
		}
	}
	return TypeGeneral
}

// ContentHash produces a stable id for deduplicating ingested events.
func ContentHash(headline, url string) string {
	sum := sha256.Sum256([]byte(headline + url))
	return hex.EncodeToString(sum[:])
}

// Decay returns the decay factor for an event of the given age. The curve
// is exp(-ln(10)·age/window): 1.0 at ingestion, exactly 0.1 at the window
// boundary, monotonically decreasing and never negative.
func Decay(age, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	if age <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln10 * float64(age) / float64(window))
}
