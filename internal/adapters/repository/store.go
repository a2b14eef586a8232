// Package repository defines the event ledger interface and its SQLite
// implementation.
package repository

import (
	"context"

	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/window"
)

// Store provides access to the append-only event ledger and the entity
// registry.
type Store interface {
	// Append durably records an event and returns its assigned id. Ids are
	// strictly increasing in insertion order and never reused.
	Append(ctx context.Context, entityID string, dir model.Direction, ts int64) (int64, error)

	// LastDirection returns the direction of the entity's most recent event
	// by timestamp, ties broken by highest id. found is false when the
	// entity has no events.
	LastDirection(ctx context.Context, entityID string) (dir model.Direction, found bool, err error)

	// Range returns all events inside the window, newest first.
	Range(ctx context.Context, w window.Window) ([]model.Event, error)

	// RangeJoined is Range with registered entity metadata attached.
	RangeJoined(ctx context.Context, w window.Window) ([]model.LogEntry, error)

	// Clear removes all events. Irreversible; it does not reset the id
	// space.
	Clear(ctx context.Context) error

	// UpsertEntity inserts or replaces registry metadata for an entity.
	UpsertEntity(ctx context.Context, e model.Entity) error

	// GetEntity returns registry metadata. found is false for unregistered
	// ids, which is not an error.
	GetEntity(ctx context.Context, id string) (e model.Entity, found bool, err error)

	// Close releases the underlying store.
	Close() error
}
