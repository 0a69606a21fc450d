// Package repository defines the persistence interface backing engine
// reads and the append-only score history.
package repository

import (
	"context"
	"time"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// Issuer is a tracked, scoreable entity.
type Issuer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ticker string `json:"ticker,omitempty"`
	Sector string `json:"sector,omitempty"`
}

// Store provides the reads the engine consumes and the writes the
// pipeline produces. Score inserts are append-only; history is never
// updated in place.
type Store interface {
	// Issuers.
	CreateIssuer(ctx context.Context, issuer Issuer) error
	GetIssuer(ctx context.Context, id string) (Issuer, error)
	ListIssuers(ctx context.Context) ([]Issuer, error)

	// Feature snapshots. LatestFeatures returns the newest value per
	// feature name out of the given whitelist; absent features are simply
	// missing from the map.
	RecordFeature(ctx context.Context, fv model.FeatureValue) error
	LatestFeatures(ctx context.Context, issuerID string, names []string) (map[string]float64, error)

	// Events. RecordEvent returns ErrDuplicateEvent when the content hash
	// is already stored. ActiveEvents returns records inside the window
	// with a decay factor above the floor. RefreshDecay re-derives decay
	// factors from event age; factors only ever decrease.
	RecordEvent(ctx context.Context, ev model.EventRecord) error
	ActiveEvents(ctx context.Context, issuerID string, since time.Time, decayFloor float64) ([]model.EventRecord, error)
	RefreshDecay(ctx context.Context, now time.Time, window time.Duration) (int64, error)

	// Macro indicators (global, not issuer-scoped).
	RecordMacro(ctx context.Context, mi model.MacroIndicator) error
	LatestMacros(ctx context.Context) (map[string]float64, error)

	// Scores.
	AppendScore(ctx context.Context, result model.ScoreResult) error
	LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error)
	ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error)

	Close() error
}
