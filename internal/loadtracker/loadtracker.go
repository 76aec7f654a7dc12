// Package loadtracker implements the Loading Tracker (spec.md §4.9):
// aggregates outstanding load IDs into three observable booleans.
package loadtracker

import (
	"sync"

	"github.com/google/uuid"
)

// Key identifies which set an ID belongs to.
type Key int

const (
	Metadata Key = iota
	Chunk
)

// Tracker maintains the metadata/chunk loading sets and the derived
// metadataLoading/chunkLoading/loading booleans (spec.md §4.9's invariant:
// loading ⇔ (|metadata| + |chunk|) > 0, maintained transactionally).
type Tracker struct {
	mu       sync.Mutex
	metadata map[uuid.UUID]struct{}
	chunk    map[uuid.UUID]struct{}
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		metadata: map[uuid.UUID]struct{}{},
		chunk:    map[uuid.UUID]struct{}{},
	}
}

// SetLoading registers a new opaque ID in the given set and returns it.
func (t *Tracker) SetLoading(key Key) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	defer t.mu.Unlock()
	switch key {
	case Metadata:
		t.metadata[id] = struct{}{}
	case Chunk:
		t.chunk[id] = struct{}{}
	}
	return id
}

// ClearLoading removes id from both sets. forceClear additionally clears
// every outstanding ID in both sets (used when a caller knows its result
// is no longer relevant and wants to reset tracker state entirely).
func (t *Tracker) ClearLoading(id uuid.UUID, forceClear bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if forceClear {
		t.metadata = map[uuid.UUID]struct{}{}
		t.chunk = map[uuid.UUID]struct{}{}
		return
	}
	delete(t.metadata, id)
	delete(t.chunk, id)
}

// MetadataLoading reports whether any metadata load ID is outstanding.
func (t *Tracker) MetadataLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.metadata) > 0
}

// ChunkLoading reports whether any chunk load ID is outstanding.
func (t *Tracker) ChunkLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunk) > 0
}

// Loading reports whether any load ID, of either kind, is outstanding.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.metadata) > 0 || len(t.chunk) > 0
}
