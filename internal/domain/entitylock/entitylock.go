// Package entitylock serializes resolve-then-append sequences per entity id.
//
// Direction resolution reads the entity's last event and then appends a new
// one. Two concurrent scans for the same id would both read the same history
// and toggle to the same direction, so the read-modify-write must hold the
// entity's lock for its whole duration. Locks are striped to bound memory:
// distinct ids may share a stripe, which only costs spurious contention.
package entitylock

import (
	"hash/fnv"
	"sync"
)

// defaultStripes bounds the lock table size.
const defaultStripes = 128

// Locks is a striped per-entity mutex set.
type Locks struct {
	stripes []sync.Mutex
}

// Option applies a configuration option to Locks.
type Option func(*Locks)

// WithStripes sets the number of lock stripes.
func WithStripes(n int) Option {
	return func(l *Locks) {
		if n > 0 {
			l.stripes = make([]sync.Mutex, n)
		}
	}
}

// New creates a lock set with configuration options.
func New(opts ...Option) *Locks {
	l := &Locks{stripes: make([]sync.Mutex, defaultStripes)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires the stripe owning entityID and returns its unlock func.
func (l *Locks) Lock(entityID string) func() {
	m := &l.stripes[l.index(entityID)]
	m.Lock()
	return m.Unlock
}

func (l *Locks) index(entityID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return int(h.Sum32() % uint32(len(l.stripes)))
}
