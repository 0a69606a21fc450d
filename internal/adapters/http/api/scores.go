// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

const maxHistoryLimit = 500

// ScoreDependencies defines the interface for score reads.
type ScoreDependencies interface {
	LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error)
	ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error)
}

// ScoresHandler handles score reads.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScores handles GET /scores/{issuer_id} and
// GET /scores/{issuer_id}/latest requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/scores/")
	if latest, found := strings.CutSuffix(path, "/latest"); found {
		path = latest
		if path == "" || strings.Contains(path, "/") {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		h.handleLatest(w, r, path)
		return
	}

	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	h.handleHistory(w, r, path)
}

func (h *ScoresHandler) handleLatest(w http.ResponseWriter, r *http.Request, issuerID string) {
	result, err := h.deps.LatestScore(r.Context(), issuerID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toScoreResponse(result))
}

func (h *ScoresHandler) handleHistory(w http.ResponseWriter, r *http.Request, issuerID string) {
	const op = "api.get_scores"

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = parsed
	}

	history, err := h.deps.ScoreHistory(r.Context(), issuerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	out := make([]scoreResponse, len(history))
	for i, result := range history {
		out[i] = toScoreResponse(result)
	}
	writeJSON(w, http.StatusOK, out)
}
