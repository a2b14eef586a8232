// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/aforo/internal/adapters/hub"
)

// StreamHandler handles server-sent-events subscribers.
type StreamHandler struct {
	deps Dependencies
}

// NewStreamHandler creates a new SSE stream handler.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /api/stream requests. One SSE message is written
// per recorded event; keep-alive comments keep idle connections open.
// Disconnecting cancels only this subscriber.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "unsupported", ErrUnsupported)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := h.deps.Subscribe()
	defer h.deps.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if msg.Kind == hub.KindKeepAlive {
				if _, err := fmt.Fprint(w, ":ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
				continue
			}
			payload, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
