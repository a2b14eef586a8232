// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/aforo/internal/adapters/hub"
	"github.com/okian/aforo/internal/adapters/ingest"
	"github.com/okian/aforo/internal/adapters/repository"
	"github.com/okian/aforo/internal/domain/aggregate"
	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/window"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Logs(ctx context.Context, date string) ([]model.LogEntry, error)
	Stats(ctx context.Context, date string) (aggregate.Stats, error)
	DayMetrics(ctx context.Context, date string) (aggregate.Report, error)
	RangeMetrics(ctx context.Context, start, end string) (window.Window, aggregate.Report, error)
	Reset(ctx context.Context) error

	Subscribe() (string, <-chan hub.Message)
	Unsubscribe(id string)

	RegisterEntity(ctx context.Context, e model.Entity) error
	Entity(ctx context.Context, id string) (model.Entity, bool, error)

	Sources() []ingest.SourceInfo
	Reconnect(ctx context.Context) []ingest.SourceInfo
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	logsHandler     *LogsHandler
	statsHandler    *StatsHandler
	metricsHandler  *MetricsHandler
	resetHandler    *ResetHandler
	streamHandler   *StreamHandler
	wsHandler       *WSHandler
	sourcesHandler  *SourcesHandler
	entitiesHandler *EntitiesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		logsHandler:     NewLogsHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		metricsHandler:  NewMetricsHandler(deps),
		resetHandler:    NewResetHandler(deps),
		streamHandler:   NewStreamHandler(deps),
		wsHandler:       NewWSHandler(deps),
		sourcesHandler:  NewSourcesHandler(deps),
		entitiesHandler: NewEntitiesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/logs", MetricsMiddleware(s.logsHandler.HandleLogs, "logs"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/metrics/day", MetricsMiddleware(s.metricsHandler.HandleDay, "metrics_day"))
	mux.HandleFunc("/api/metrics/range", MetricsMiddleware(s.metricsHandler.HandleRange, "metrics_range"))
	mux.HandleFunc("/api/reset", MetricsMiddleware(s.resetHandler.HandleReset, "reset"))
	mux.HandleFunc("/api/stream", s.streamHandler.HandleStream)
	mux.HandleFunc("/api/ws", s.wsHandler.HandleWS)
	mux.HandleFunc("/api/sources", MetricsMiddleware(s.sourcesHandler.HandleSources, "sources"))
	mux.HandleFunc("/api/reconnect", MetricsMiddleware(s.sourcesHandler.HandleReconnect, "reconnect"))
	mux.HandleFunc("/api/entities", MetricsMiddleware(s.entitiesHandler.HandleUpsert, "entities"))
	mux.HandleFunc("/api/entities/", MetricsMiddleware(s.entitiesHandler.HandleGet, "entity_get"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeQueryError maps service errors to HTTP statuses. A store failure must
// stay distinguishable from an empty window, so it surfaces as a 500 with an
// explicit code rather than an empty payload.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, window.ErrBadDate):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, "store_unavailable", err)
	case errors.Is(err, repository.ErrInvalidEntity):
		writeError(w, http.StatusBadRequest, "invalid_entity", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
