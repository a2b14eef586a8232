// Package relay forwards recorded events to an external endpoint.
//
// Forwarding is fire-and-forget: a relay failure is logged and counted but
// never reaches the resolve-and-append path.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/pkg/logger"
	"github.com/okian/aforo/pkg/metrics"
)

// defaultTimeout bounds one outbound request.
const defaultTimeout = 5 * time.Second

// Relay posts events to a configured endpoint.
type Relay struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

// Option applies a configuration option to the Relay.
type Option func(*Relay)

// WithTimeout sets the outbound request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithLogger sets a custom logger for the relay.
func WithLogger(l logger.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Relay for the given endpoint. An empty endpoint disables
// forwarding; Forward becomes a no-op.
func New(endpoint string, opts ...Option) *Relay {
	r := &Relay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.Get().Named("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether an endpoint is configured.
func (r *Relay) Enabled() bool {
	return r.endpoint != ""
}

// Forward pushes one event to the endpoint in a background goroutine. The
// caller's context is not used: a canceled ingest request must not cancel an
// already-committed event's relay.
func (r *Relay) Forward(event model.Event) {
	if !r.Enabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
		defer cancel()

		if err := r.post(ctx, event); err != nil {
			metrics.RecordRelayFailure()
			r.logger.Warn(ctx, "relay forward failed",
				logger.String("entityID", event.EntityID),
				logger.Error(err),
			)
			return
		}
		metrics.RecordRelaySent()
	}()
}

func (r *Relay) post(ctx context.Context, event model.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post relay event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("relay endpoint returned %d", resp.StatusCode)
	}
	return nil
}
