// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/aforo/internal/domain/model"
)

// EntitiesHandler handles the entity registry endpoints.
type EntitiesHandler struct {
	deps Dependencies
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(deps Dependencies) *EntitiesHandler {
	return &EntitiesHandler{deps: deps}
}

// HandleUpsert handles POST /api/entities requests.
func (h *EntitiesHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var e model.Entity
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	e.ID = strings.TrimSpace(e.ID)
	e.Kind = strings.TrimSpace(e.Kind)

	if err := h.deps.RegisterEntity(r.Context(), e); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type entityResponse struct {
	Item *model.Entity `json:"item"`
}

// HandleGet handles GET /api/entities/{id} requests. Unregistered ids return
// a null item, not an error.
func (h *EntitiesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/entities/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	e, found, err := h.deps.Entity(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, entityResponse{Item: nil})
		return
	}
	writeJSON(w, http.StatusOK, entityResponse{Item: &e})
}
