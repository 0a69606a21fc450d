// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	repository "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/repository"
)

// IssuerDependencies defines the interface for issuer operations.
type IssuerDependencies interface {
	CreateIssuer(ctx context.Context, issuer repository.Issuer) error
	ListIssuers(ctx context.Context) ([]repository.Issuer, error)
}

// IssuersHandler handles issuer registration and listing.
type IssuersHandler struct {
	deps IssuerDependencies
}

// NewIssuersHandler creates a new issuers handler.
func NewIssuersHandler(deps IssuerDependencies) *IssuersHandler {
	return &IssuersHandler{deps: deps}
}

type issuerRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ticker string `json:"ticker,omitempty"`
	Sector string `json:"sector,omitempty"`
}

func (i issuerRequest) validate() error {
	switch {
	case strings.TrimSpace(i.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(i.Name) == "":
		return errors.New("missing name")
	}
	return nil
}

// HandleIssuers handles POST and GET /issuers requests.
func (h *IssuersHandler) HandleIssuers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *IssuersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_issuer"
	var req issuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.CreateIssuer(r.Context(), repository.Issuer{
		ID:     req.ID,
		Name:   req.Name,
		Ticker: req.Ticker,
		Sector: req.Sector,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateIssuer) {
			writeError(w, http.StatusConflict, "duplicate_issuer", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "created"})
}

func (h *IssuersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	issuers, err := h.deps.ListIssuers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if issuers == nil {
		issuers = []repository.Issuer{}
	}
	writeJSON(w, http.StatusOK, issuers)
}
