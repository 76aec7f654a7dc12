// Package tile implements the Tile component (spec.md §4.3): one (x,y,z)
// cell owning its chunk staging map, GPU band buffers, and load-state
// machine.
package tile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"

	"github.com/pyramidview/pyramid/internal/cache"
	"github.com/pyramidview/pyramid/internal/coord"
	"github.com/pyramidview/pyramid/internal/ndarray"
	"github.com/pyramidview/pyramid/internal/selector"
	"github.com/pyramidview/pyramid/internal/store"
)

// ErrSelectorInvalid is the SelectorInvalid error kind (spec.md §7): a band
// resolves to other than one chunk, or sliced data is not 2-D.
var ErrSelectorInvalid = errors.New("tile: invalid selector")

// Tile owns one (x,y,z) cell's buffers, chunk staging, and load state.
type Tile struct {
	Key      coord.Key
	Variable string
	Axes     selector.Axes
	Coords   map[string][]selector.Coord // non-spatial axis values
	TileSize int

	cache  *cache.ChunkCache
	loader store.ChunkLoader
	sf     singleflight.Group

	mu          sync.Mutex
	loading     map[string]bool
	buffers     map[string][]float64 // band name -> flat (y,x) buffer
	bufferCache *uint64              // hash of the selector currently in buffers
}

// New constructs a Tile. chunkCache is shared across every tile in the
// pyramid (spec.md §9's open question on bounding chunkedData).
func New(key coord.Key, variable string, axes selector.Axes, coords map[string][]selector.Coord, tileSize int, chunkCache *cache.ChunkCache, loader store.ChunkLoader) *Tile {
	return &Tile{
		Key:      key,
		Variable: variable,
		Axes:     axes,
		Coords:   coords,
		TileSize: tileSize,
		cache:    chunkCache,
		loader:   loader,
		loading:  map[string]bool{},
		buffers:  map[string][]float64{},
	}
}

func chunkIndexString(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (t *Tile) cacheKey(idx []int) cache.ChunkKey {
	return cache.ChunkKey{Level: t.Key.Level, TileKey: t.Key.String(), ChunkIndex: chunkIndexString(idx)}
}

// LoadChunks fetches every chunk in chunkList not already staged, sharing
// in-flight fetches across concurrent callers via singleflight. It resolves
// with true iff any chunk was newly fetched (spec.md §4.3).
func (t *Tile) LoadChunks(ctx context.Context, chunkList [][]int) (bool, error) {
	anyNew := false
	var firstErr error
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, idx := range chunkList {
		idx := idx
		ck := t.cacheKey(idx)
		if _, ok := t.cache.Get(ck); ok {
			continue
		}

		sfKey := ck.TileKey + "|" + strconv.Itoa(ck.Level) + "|" + ck.ChunkIndex
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.setLoading(sfKey, true)
			defer t.setLoading(sfKey, false)

			v, err, _ := t.sf.Do(sfKey, func() (any, error) {
				return t.loader(ctx, idx)
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("tile: loading chunk %v: %w", idx, err)
				}
				return
			}
			arr := v.(*ndarray.Array)
			t.cache.Add(ck, arr)
			anyNew = true
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return anyNew, firstErr
	}
	return anyNew, nil
}

func (t *Tile) setLoading(key string, loading bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loading {
		t.loading[key] = true
	} else {
		delete(t.loading, key)
	}
}

// ChunksLoaded waits for the futures registered by an earlier LoadChunks
// call for the same chunk set (spec.md §4.3); since LoadChunks already
// shares in-flight fetches via singleflight, joining it again is the wait.
func (t *Tile) ChunksLoaded(ctx context.Context, chunkList [][]int) error {
	_, err := t.LoadChunks(ctx, chunkList)
	return err
}

// HasLoadedChunks synchronously reports whether every chunk in chunkList is
// staged.
func (t *Tile) HasLoadedChunks(chunkList [][]int) bool {
	for _, idx := range chunkList {
		if _, ok := t.cache.Get(t.cacheKey(idx)); !ok {
			return false
		}
	}
	return true
}

// IsLoadingChunks reports whether every chunk in chunkList currently has an
// in-flight load.
func (t *Tile) IsLoadingChunks(chunkList [][]int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, idx := range chunkList {
		ck := t.cacheKey(idx)
		sfKey := ck.TileKey + "|" + strconv.Itoa(ck.Level) + "|" + ck.ChunkIndex
		if !t.loading[sfKey] {
			return false
		}
	}
	return len(chunkList) > 0
}

// hashableDim is selector.Value flattened to exported fields: hashstructure
// skips unexported struct fields, so hashing a selector.Selector directly
// would collapse every selector to the same hash.
type hashableDim struct {
	Dim   string
	List  bool
	Items []selector.Coord
}

// selectorHash hashes a selector for bufferCache comparisons (spec.md §4.3,
// §4.7's selector-hash safety property).
func selectorHash(sel selector.Selector) (uint64, error) {
	dims := make([]hashableDim, 0, len(sel))
	for d, v := range sel {
		dims = append(dims, hashableDim{Dim: d, List: v.IsList(), Items: v.Items()})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Dim < dims[j].Dim })
	return hashstructure.Hash(dims, hashstructure.FormatV2, nil)
}

// HasPopulatedBuffer reports bufferCache == hash(selector).
func (t *Tile) HasPopulatedBuffer(sel selector.Selector) bool {
	h, err := selectorHash(sel)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bufferCache != nil && *t.bufferCache == h
}

// Buffers returns the current band buffers, keyed by band name. Callers
// must not mutate the returned slices.
func (t *Tile) Buffers() map[string][]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]float64, len(t.buffers))
	for k, v := range t.buffers {
		out[k] = v
	}
	return out
}
