// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/aforo/internal/adapters/hub"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// WSHandler handles websocket subscribers. It delivers the same payloads as
// the SSE stream; keep-alives become ping control frames.
type WSHandler struct {
	deps     Dependencies
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(deps Dependencies) *WSHandler {
	return &WSHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens in the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS handles GET /api/ws requests.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	id, ch := h.deps.Subscribe()
	defer h.deps.Unsubscribe(id)

	// Drain reads so close frames are processed; any read error ends the
	// subscription.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if err := h.write(conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msg hub.Message) error {
	deadline := time.Now().Add(writeWait)
	if msg.Kind == hub.KindKeepAlive {
		return conn.WriteControl(websocket.PingMessage, nil, deadline)
	}
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteJSON(msg.Event)
}
