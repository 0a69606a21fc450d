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

// MacroDependencies defines the interface for macro indicator writes.
type MacroDependencies interface {
	RecordMacro(ctx context.Context, mi model.MacroIndicator) error
}

// MacroHandler handles macro indicator submissions.
type MacroHandler struct {
	deps MacroDependencies
}

// NewMacroHandler creates a new macro handler.
func NewMacroHandler(deps MacroDependencies) *MacroHandler {
	return &MacroHandler{deps: deps}
}

type macroRequest struct {
	Key    string  `json:"key"`
	Value  float64 `json:"value"`
	TS     string  `json:"ts,omitempty"`
	Source string  `json:"source,omitempty"`
}

func (m macroRequest) validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return errors.New("missing key")
	}
	if m.TS != "" {
		if _, err := time.Parse(time.RFC3339, m.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// HandlePostMacro handles POST /macro requests.
func (h *MacroHandler) HandlePostMacro(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_macro"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req macroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	mi := model.MacroIndicator{
		Key:    req.Key,
		Value:  req.Value,
		Source: req.Source,
	}
	if req.TS != "" {
		mi.ObservedAt, _ = time.Parse(time.RFC3339, req.TS)
	}

	if err := h.deps.RecordMacro(r.Context(), mi); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
