// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/aforo/internal/domain/model"
)

// LogsHandler handles event log requests.
type LogsHandler struct {
	deps Dependencies
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(deps Dependencies) *LogsHandler {
	return &LogsHandler{deps: deps}
}

type logsResponse struct {
	Items []model.LogEntry `json:"items"`
}

// HandleLogs handles GET /api/logs?date=YYYY-MM-DD requests. Without a date
// it returns the current local day.
func (h *LogsHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	items, err := h.deps.Logs(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if items == nil {
		items = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logsResponse{Items: items})
}
