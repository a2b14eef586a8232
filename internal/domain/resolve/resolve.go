// Package resolve turns parsed scans into concrete directions.
//
// Explicit direction keywords are used as-is. When a scan carries no hint,
// the entity's last recorded direction decides: an unseen entity is about to
// enter, a seen entity toggles to the opposite of its last event. The caller
// must serialize resolve-then-append per entity id, otherwise two concurrent
// scans can read the same history and break strict alternation.
package resolve

import (
	"context"
	"fmt"

	"github.com/okian/aforo/internal/domain/model"
)

// History exposes the ledger state the toggle rule needs.
type History interface {
	// LastDirection returns the direction of the entity's most recent event.
	// found is false when the entity has no recorded events.
	LastDirection(ctx context.Context, entityID string) (dir model.Direction, found bool, err error)
}

// Resolver resolves scan directions against a History.
type Resolver struct {
	history History
}

// New creates a Resolver backed by the given history.
func New(history History) *Resolver {
	return &Resolver{history: history}
}

// Direction resolves the direction for a scan.
func (r *Resolver) Direction(ctx context.Context, scan model.Scan) (model.Direction, error) {
	if dir, ok := scan.Hint.Direction(); ok {
		// Explicit keyword wins without consulting history.
		return dir, nil
	}

	last, found, err := r.history.LastDirection(ctx, scan.EntityID)
	if err != nil {
		return "", fmt.Errorf("resolve direction for %q: %w", scan.EntityID, err)
	}
	if !found {
		return model.Entry, nil
	}
	return last.Opposite(), nil
}
