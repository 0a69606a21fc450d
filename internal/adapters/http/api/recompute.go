// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/shxuryaaz/BlackSwan-Credit-system/internal/app"
)

// RecomputeDependencies defines the interface for triggering recomputes.
type RecomputeDependencies interface {
	GetIssuerChecker
	EnqueueRecompute(ctx context.Context, issuerID, reason string) bool
	RecomputeAll(ctx context.Context) (int, error)
}

// GetIssuerChecker verifies an issuer exists before enqueueing.
type GetIssuerChecker interface {
	GetIssuer(ctx context.Context, id string) (Issuer, error)
}

// RecomputeHandler handles manual recompute triggers.
type RecomputeHandler struct {
	deps RecomputeDependencies
}

// NewRecomputeHandler creates a new recompute handler.
func NewRecomputeHandler(deps RecomputeDependencies) *RecomputeHandler {
	return &RecomputeHandler{deps: deps}
}

type recomputeResponse struct {
	Status   string `json:"status"`
	Enqueued int    `json:"enqueued"`
}

// HandleRecomputeAll handles POST /recompute requests.
func (h *RecomputeHandler) HandleRecomputeAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accepted, err := h.deps.RecomputeAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, recomputeResponse{Status: "accepted", Enqueued: accepted})
}

// HandleRecomputeOne handles POST /recompute/{issuer_id} requests.
func (h *RecomputeHandler) HandleRecomputeOne(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute_one"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	issuerID, ok := pathParam(r.URL.Path, "/recompute/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if _, err := h.deps.GetIssuer(r.Context(), issuerID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if !h.deps.EnqueueRecompute(r.Context(), issuerID, service.ReasonManual) {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, recomputeResponse{Status: "accepted", Enqueued: 1})
}
