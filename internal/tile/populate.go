package tile

import (
	"context"
	"fmt"

	"github.com/pyramidview/pyramid/internal/ndarray"
	"github.com/pyramidview/pyramid/internal/selector"
)

// PopulateBuffers loads the chunks a selector needs, then populates the
// band buffers synchronously (spec.md §4.3).
func (t *Tile) PopulateBuffers(ctx context.Context, chunkList [][]int, sel selector.Selector) (bool, error) {
	anyNew, err := t.LoadChunks(ctx, chunkList)
	if err != nil {
		return anyNew, err
	}
	if err := t.PopulateBuffersSync(sel); err != nil {
		return anyNew, err
	}
	return anyNew, nil
}

// PopulateBuffersSync slices already-staged chunks into 2-D band buffers
// and marks bufferCache with the selector's hash. Fatal (SelectorInvalid)
// if a band needs other than one chunk, or a slice is not 2-D.
func (t *Tile) PopulateBuffersSync(sel selector.Selector) error {
	bands := selector.Expand(sel)
	if bands == nil {
		fixed := map[string]selector.Coord{}
		for dim, v := range sel {
			if !v.IsList() && len(v.Items()) > 0 {
				fixed[dim] = v.Items()[0]
			}
		}
		bands = []selector.Band{{Name: selector.VariableBandName(t.Variable), Fixed: fixed}}
	}

	// Cache fetched chunks by chunk-key within this call (spec.md §9's noted
	// safe optimization: multiple bands may share the same chunk).
	sliceCache := map[string]*ndarray.Array{}

	newBuffers := make(map[string][]float64, len(bands))
	for _, band := range bands {
		bandSel := selector.Selector{}
		for dim, v := range band.Fixed {
			bandSel[dim] = selector.Scalar(v)
		}

		tuples, err := selector.ChunkSet(bandSel, t.Axes, t.Key.X, t.Key.Y)
		if err != nil {
			return fmt.Errorf("%w: band %q: %v", ErrSelectorInvalid, band.Name, err)
		}
		if len(tuples) != 1 {
			return fmt.Errorf("%w: band %q requires %d chunks, want exactly 1", ErrSelectorInvalid, band.Name, len(tuples))
		}
		idx := tuples[0]
		idxStr := chunkIndexString(idx)

		chunk, ok := sliceCache[idxStr]
		if !ok {
			entry, found := t.cache.Get(t.cacheKey(idx))
			if !found {
				return fmt.Errorf("tile: missing chunk %v for band %q", idx, band.Name)
			}
			chunk = entry.(*ndarray.Array)
		}

		fixedIdx, err := t.localChunkIndices(band.Fixed, idx)
		if err != nil {
			return fmt.Errorf("%w: band %q: %v", ErrSelectorInvalid, band.Name, err)
		}

		bandData, err := chunk.Slice(fixedIdx)
		if err != nil {
			return fmt.Errorf("%w: band %q: %v", ErrSelectorInvalid, band.Name, err)
		}
		if bandData.Rank() != 2 {
			return fmt.Errorf("%w: band %q sliced to rank %d, want 2", ErrSelectorInvalid, band.Name, bandData.Rank())
		}

		sliceCache[idxStr] = chunk
		buf := getBuffer(t.TileSize, t.TileSize)
		copy(buf, bandData.Data)
		newBuffers[band.Name] = buf
	}

	h, err := selectorHash(sel)
	if err != nil {
		return fmt.Errorf("tile: hashing selector: %w", err)
	}

	t.mu.Lock()
	oldBuffers := t.buffers
	t.buffers = newBuffers
	t.bufferCache = &h
	t.mu.Unlock()

	// draw() and populate both run on the host's single task runner, so the
	// previous buffers have already been read before this call returns them
	// to the pool (spec.md §5's shared-resources note).
	for _, buf := range oldBuffers {
		putBuffer(t.TileSize, t.TileSize, buf)
	}
	return nil
}

// localChunkIndices maps each non-spatial dim's fixed coordinate value to
// its index within the chunk that tuple addresses (global axis position
// modulo the dimension's chunk size).
func (t *Tile) localChunkIndices(fixed map[string]selector.Coord, chunkIdx []int) (map[string]int, error) {
	out := make(map[string]int, len(fixed))
	for i, dim := range t.Axes.Dims {
		if dim == t.Axes.SpatialX || dim == t.Axes.SpatialY {
			continue
		}
		val, ok := fixed[dim]
		if !ok {
			continue
		}
		chunkSize := t.Axes.Chunks[dim]
		globalIdx, err := selector.IndexOf(t.Coords[dim], val)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", dim, err)
		}
		out[dim] = globalIdx - chunkIdx[i]*chunkSize
	}
	return out, nil
}
