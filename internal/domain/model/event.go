// Package model contains domain models passed between layers.
package model

import "time"

// Direction classifies a presence event.
type Direction string

// Direction values stored in the ledger.
const (
	Entry Direction = "entrada"
	Exit  Direction = "salida"
)

// Opposite returns the toggled direction.
func (d Direction) Opposite() Direction {
	if d == Entry {
		return Exit
	}
	return Entry
}

// Valid reports whether d is one of the two ledger directions.
func (d Direction) Valid() bool {
	return d == Entry || d == Exit
}

// Hint is the direction information extracted from a raw line. A line may
// carry an explicit direction keyword or nothing at all, so the parsed form
// keeps "unspecified" as its own case instead of overloading Direction.
type Hint int

// Hint values produced by the parser.
const (
	HintNone Hint = iota
	HintEntry
	HintExit
)

// Direction maps an explicit hint to its ledger direction. ok is false for
// HintNone.
func (h Hint) Direction() (Direction, bool) {
	switch h {
	case HintEntry:
		return Entry, true
	case HintExit:
		return Exit, true
	default:
		return "", false
	}
}

// Scan is a decoded device line before direction resolution.
type Scan struct {
	EntityID string
	Hint     Hint
}

// Event is an immutable recorded presence fact. Events are created only by
// the ledger append path and never updated.
type Event struct {
	ID        int64     `json:"id"`
	EntityID  string    `json:"entity_id"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"ts"`
}

// Entity is optional registered metadata for an entity id. Ids never require
// pre-registration; unknown ids are valid scan subjects.
type Entity struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Grade string `json:"grade,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Entity kinds accepted by the registry.
const (
	KindSchool     = "escolar"
	KindUniversity = "universitario"
)

// LogEntry is an event joined with its entity metadata, when registered.
type LogEntry struct {
	Event
	Entity *Entity `json:"entity,omitempty"`
}
