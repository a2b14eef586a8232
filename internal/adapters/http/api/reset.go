// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// ResetHandler handles the administrative ledger reset.
type ResetHandler struct {
	deps Dependencies
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps Dependencies) *ResetHandler {
	return &ResetHandler{deps: deps}
}

type okResponse struct {
	OK bool `json:"ok"`
}

// HandleReset handles POST /api/reset requests. Clearing is irreversible.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if err := h.deps.Reset(r.Context()); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
