// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/okian/aforo/internal/domain/aggregate"
)

// MetricsHandler handles the daily and range aggregation reports.
type MetricsHandler struct {
	deps Dependencies
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(deps Dependencies) *MetricsHandler {
	return &MetricsHandler{deps: deps}
}

// HandleDay handles GET /api/metrics/day?date=YYYY-MM-DD requests.
func (h *MetricsHandler) HandleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	report, err := h.deps.DayMetrics(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type rangeBounds struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type rangeResponse struct {
	Range rangeBounds `json:"range"`
	aggregate.Report
}

// HandleRange handles GET /api/metrics/range?start=...&end=... requests.
// With no explicit bounds the current local day is used.
func (h *MetricsHandler) HandleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	win, report, err := h.deps.RangeMetrics(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rangeResponse{
		Range:  rangeBounds{Start: win.Start, End: win.End},
		Report: report,
	})
}
