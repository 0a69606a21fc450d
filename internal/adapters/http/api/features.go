// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// FeatureDependencies defines the interface for feature writes.
type FeatureDependencies interface {
	RecordFeature(ctx context.Context, fv model.FeatureValue) error
}

// FeaturesHandler handles feature snapshot submissions.
type FeaturesHandler struct {
	deps FeatureDependencies
}

// NewFeaturesHandler creates a new features handler.
func NewFeaturesHandler(deps FeatureDependencies) *FeaturesHandler {
	return &FeaturesHandler{deps: deps}
}

type featureRequest struct {
	IssuerID string  `json:"issuer_id"`
	Name     string  `json:"feature_name"`
	Value    float64 `json:"value"`
	TS       string  `json:"ts,omitempty"`
	Source   string  `json:"source,omitempty"`
}

func (f featureRequest) validate() error {
	switch {
	case strings.TrimSpace(f.IssuerID) == "":
		return errors.New("missing issuer_id")
	case strings.TrimSpace(f.Name) == "":
		return errors.New("missing feature_name")
	}
	if f.TS != "" {
		if _, err := time.Parse(time.RFC3339, f.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// HandlePostFeature handles POST /features requests.
func (h *FeaturesHandler) HandlePostFeature(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feature"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req featureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	fv := model.FeatureValue{
		IssuerID: req.IssuerID,
		Name:     req.Name,
		Value:    req.Value,
		Source:   req.Source,
	}
	if req.TS != "" {
		fv.ObservedAt, _ = time.Parse(time.RFC3339, req.TS)
	}

	if err := h.deps.RecordFeature(r.Context(), fv); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
