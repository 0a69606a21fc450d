// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	repository "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/repository"
	service "github.com/shxuryaaz/BlackSwan-Credit-system/internal/app"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// Issuer mirrors the read shape returned by issuer queries.
type Issuer = repository.Issuer

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateIssuer(ctx context.Context, issuer repository.Issuer) error
	GetIssuer(ctx context.Context, id string) (repository.Issuer, error)
	ListIssuers(ctx context.Context) ([]repository.Issuer, error)

	RecordFeature(ctx context.Context, fv model.FeatureValue) error
	RecordMacro(ctx context.Context, mi model.MacroIndicator) error

	IngestEvent(ctx context.Context, req service.IngestRequest) (model.EventRecord, error)

	// EnqueueRecompute returns false on backpressure.
	EnqueueRecompute(ctx context.Context, issuerID, reason string) bool
	RecomputeAll(ctx context.Context) (int, error)

	LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error)
	ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	issuersHandler   *IssuersHandler
	featuresHandler  *FeaturesHandler
	eventsHandler    *EventsHandler
	macroHandler     *MacroHandler
	recomputeHandler *RecomputeHandler
	scoresHandler    *ScoresHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		issuersHandler:   NewIssuersHandler(deps),
		featuresHandler:  NewFeaturesHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		macroHandler:     NewMacroHandler(deps),
		recomputeHandler: NewRecomputeHandler(deps),
		scoresHandler:    NewScoresHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/issuers", MetricsMiddleware(s.issuersHandler.HandleIssuers, "issuers"))
	mux.HandleFunc("/features", MetricsMiddleware(s.featuresHandler.HandlePostFeature, "features"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/macro", MetricsMiddleware(s.macroHandler.HandlePostMacro, "macro"))
	mux.HandleFunc("/recompute", MetricsMiddleware(s.recomputeHandler.HandleRecomputeAll, "recompute"))
	mux.HandleFunc("/recompute/", MetricsMiddleware(s.recomputeHandler.HandleRecomputeOne, "recompute_one"))
	mux.HandleFunc("/scores/", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// scoreResponse is the wire shape of one score record. The score and its
// components are rounded to one decimal; full precision stays in storage.
type scoreResponse struct {
	IssuerID     string            `json:"issuer_id"`
	ComputedAt   time.Time         `json:"computed_at"`
	Score        float64           `json:"score"`
	Bucket       model.Bucket      `json:"bucket"`
	Base         float64           `json:"base"`
	Market       float64           `json:"market"`
	EventDelta   float64           `json:"event_delta"`
	MacroAdj     float64           `json:"macro_adj"`
	ModelVersion string            `json:"model_version,omitempty"`
	Explanation  model.Explanation `json:"explanation"`
}

func toScoreResponse(result model.ScoreResult) scoreResponse {
	return scoreResponse{
		IssuerID:     result.IssuerID,
		ComputedAt:   result.ComputedAt,
		Score:        model.Round1(result.Score),
		Bucket:       result.Bucket,
		Base:         result.Base,
		Market:       result.Market,
		EventDelta:   result.EventDelta,
		MacroAdj:     result.MacroAdj,
		ModelVersion: result.ModelVersion,
		Explanation:  result.Explanation,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// pathParam extracts the single path segment after prefix, rejecting
// nested paths.
func pathParam(path, prefix string) (string, bool) {
	param := strings.TrimPrefix(path, prefix)
	if param == "" || strings.Contains(param, "/") {
		return "", false
	}
	return param, true
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrIssuerNotFound) ||
		errors.Is(err, repository.ErrScoreNotFound)
}
