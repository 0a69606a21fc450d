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

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	IngestEvent(ctx context.Context, req service.IngestRequest) (model.EventRecord, error)
}

// EventsHandler handles news event submissions.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventRequest struct {
	IssuerID  string  `json:"issuer_id"`
	Headline  string  `json:"headline"`
	URL       string  `json:"url"`
	Sentiment float64 `json:"sentiment"`
	Type      string  `json:"type,omitempty"`
	TS        string  `json:"ts,omitempty"`
	Source    string  `json:"source,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.IssuerID) == "":
		return errors.New("missing issuer_id")
	case strings.TrimSpace(e.Headline) == "":
		return errors.New("missing headline")
	}
	if e.Sentiment < -1 || e.Sentiment > 1 {
		return errors.New("sentiment must be within [-1, 1]")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

type eventResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ingest := service.IngestRequest{
		IssuerID:  req.IssuerID,
		Headline:  req.Headline,
		URL:       req.URL,
		Sentiment: req.Sentiment,
		Type:      req.Type,
		Source:    req.Source,
	}
	if req.TS != "" {
		ingest.OccurredAt, _ = time.Parse(time.RFC3339, req.TS)
	}

	record, err := h.deps.IngestEvent(r.Context(), ingest)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			writeJSON(w, http.StatusOK, eventResponse{Status: "duplicate"})
			return
		}
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, eventResponse{
		Status: "accepted",
		ID:     record.ID,
		Type:   record.Type,
		Weight: record.Weight,
	})
}
