// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/aforo/internal/adapters/ingest"
)

// SourcesHandler handles line-source inspection and reconnect.
type SourcesHandler struct {
	deps Dependencies
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(deps Dependencies) *SourcesHandler {
	return &SourcesHandler{deps: deps}
}

type sourcesResponse struct {
	Sources []ingest.SourceInfo `json:"sources"`
}

// HandleSources handles GET /api/sources requests.
func (h *SourcesHandler) HandleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: h.deps.Sources()})
}

// HandleReconnect handles POST /api/reconnect requests: close-then-reopen of
// the device sources.
func (h *SourcesHandler) HandleReconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: h.deps.Reconnect(r.Context())})
}
