// Package store is the Chunk Loader Registry (spec.md §4.2): a per-level
// function hiding the store-version-specific transport from the rest of
// the engine.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pyramidview/pyramid/internal/ndarray"
)

// ChunkLoader fetches one chunk's array data by its chunk-index tuple.
// Implementations must tolerate being called multiple times for the same
// index; C3 is responsible for deduping concurrent calls.
type ChunkLoader func(ctx context.Context, chunkIndex []int) (*ndarray.Array, error)

// Registry holds one ChunkLoader per pyramid level.
type Registry struct {
	mu      sync.RWMutex
	loaders map[int]ChunkLoader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[int]ChunkLoader)}
}

// Register installs the loader for a level, replacing any prior one.
func (r *Registry) Register(level int, loader ChunkLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[level] = loader
}

// Loader returns the loader for a level, or an error if none is registered.
func (r *Registry) Loader(level int) (ChunkLoader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[level]
	if !ok {
		return nil, fmt.Errorf("store: no chunk loader registered for level %d", level)
	}
	return loader, nil
}
