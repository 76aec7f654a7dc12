package tile

import (
	"fmt"
	"sort"

	"github.com/pyramidview/pyramid/internal/ndarray"
	"github.com/pyramidview/pyramid/internal/selector"
)

// PointValue is one entry of GetPointValues' result: the varying-dimension
// coordinate labels for this value, and the value itself.
type PointValue struct {
	Keys  []string
	Value float64
}

// GetPointValues returns, for a pixel within the tile, one PointValue per
// combination of list-selector and unconstrained non-spatial dimensions
// (spec.md §4.3). Keys is empty when the selector is fully scalar.
func (t *Tile) GetPointValues(sel selector.Selector, px, py int) ([]PointValue, error) {
	effective := selector.Selector{}
	selDims := make([]string, 0, len(sel))
	for dim, v := range sel {
		effective[dim] = v
		selDims = append(selDims, dim)
	}
	sort.Strings(selDims)

	var varying []string
	for _, dim := range selDims {
		if sel[dim].IsList() {
			varying = append(varying, dim)
		}
	}
	for _, dim := range t.Axes.Dims {
		if dim == t.Axes.SpatialX || dim == t.Axes.SpatialY {
			continue
		}
		if _, ok := sel[dim]; ok {
			continue
		}
		coords := t.Coords[dim]
		if len(coords) == 0 {
			continue
		}
		effective[dim] = selector.List(coords...)
		varying = append(varying, dim)
	}

	bands := selector.Expand(effective)
	if bands == nil {
		bands = []selector.Band{{Fixed: map[string]selector.Coord{}}}
	}

	sliceCache := map[string]*ndarray.Array{}
	results := make([]PointValue, 0, len(bands))

	for _, band := range bands {
		bandSel := selector.Selector{}
		for dim, v := range band.Fixed {
			bandSel[dim] = selector.Scalar(v)
		}
		tuples, err := selector.ChunkSet(bandSel, t.Axes, t.Key.X, t.Key.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSelectorInvalid, err)
		}
		if len(tuples) != 1 {
			return nil, fmt.Errorf("%w: point query requires exactly 1 chunk, got %d", ErrSelectorInvalid, len(tuples))
		}
		idx := tuples[0]
		idxStr := chunkIndexString(idx)

		chunk, ok := sliceCache[idxStr]
		if !ok {
			entry, found := t.cache.Get(t.cacheKey(idx))
			if !found {
				return nil, fmt.Errorf("tile: missing chunk %v for point query", idx)
			}
			chunk = entry.(*ndarray.Array)
			sliceCache[idxStr] = chunk
		}

		fixedIdx, err := t.localChunkIndices(band.Fixed, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSelectorInvalid, err)
		}

		bandData, err := chunk.Slice(fixedIdx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSelectorInvalid, err)
		}
		if bandData.Rank() != 2 {
			return nil, fmt.Errorf("%w: point slice rank %d, want 2", ErrSelectorInvalid, bandData.Rank())
		}

		value, err := bandData.At(py, px)
		if err != nil {
			return nil, fmt.Errorf("tile: %w", err)
		}

		keys := make([]string, 0, len(varying))
		for _, dim := range varying {
			keys = append(keys, selector.Label(dim, band.Fixed[dim]))
		}
		results = append(results, PointValue{Keys: keys, Value: value})
	}

	return results, nil
}
