package selector

import "fmt"

// Axes describes the dimension metadata Chunks needs: the ordered dimension
// list, per-dimension shape/chunk size, the coordinate arrays for
// non-spatial dimensions, and which two dimensions are spatial.
type Axes struct {
	Dims     []string
	Shape    map[string]int
	Chunks   map[string]int
	Coords   map[string][]Coord // non-spatial dims only
	SpatialX string
	SpatialY string
}

// ChunkSet implements getChunks (spec.md §4.4): for each dimension it
// computes the chunk indices required, then returns the Cartesian product
// as chunk-index tuples ordered per axes.Dims.
func ChunkSet(sel Selector, axes Axes, tileX, tileY int) ([][]int, error) {
	perDim := make([][]int, len(axes.Dims))

	for i, dim := range axes.Dims {
		switch dim {
		case axes.SpatialX:
			perDim[i] = []int{tileX}
			continue
		case axes.SpatialY:
			perDim[i] = []int{tileY}
			continue
		}

		chunkSize := axes.Chunks[dim]
		if chunkSize <= 0 {
			return nil, fmt.Errorf("selector: dimension %q has non-positive chunk size", dim)
		}

		v, has := sel[dim]
		switch {
		case !has:
			n := axes.Shape[dim]
			count := (n + chunkSize - 1) / chunkSize
			idxs := make([]int, count)
			for c := range idxs {
				idxs[c] = c
			}
			perDim[i] = idxs

		case v.IsList():
			idxs := make([]int, 0, len(v.Items()))
			for _, val := range v.Items() {
				ci, err := chunkIndexOf(axes.Coords[dim], chunkSize, val)
				if err != nil {
					return nil, fmt.Errorf("selector: dimension %q: %w", dim, err)
				}
				idxs = append(idxs, ci)
			}
			perDim[i] = idxs

		default:
			ci, err := chunkIndexOf(axes.Coords[dim], chunkSize, v.Items()[0])
			if err != nil {
				return nil, fmt.Errorf("selector: dimension %q: %w", dim, err)
			}
			perDim[i] = []int{ci}
		}
	}

	return cartesianProduct(perDim), nil
}

// chunkIndexOf finds val's position in coords and divides by chunkSize.
func chunkIndexOf(coords []Coord, chunkSize int, val Coord) (int, error) {
	i, err := IndexOf(coords, val)
	if err != nil {
		return 0, err
	}
	return i / chunkSize, nil
}

// IndexOf finds val's absolute position along an axis's coordinate array.
// Exported for internal/tile, which needs the position within a chunk
// (IndexOf(...) % chunkSize) to slice a loaded chunk down to one band.
func IndexOf(coords []Coord, val Coord) (int, error) {
	for i, c := range coords {
		if EqualCoord(c, val) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("coordinate %v not found in axis", val)
}

// EqualCoord reports whether two coordinate values are equal, coercing
// numeric types before falling back to a string comparison.
func EqualCoord(a, b Coord) bool { return equalCoord(a, b) }

// Label renders a single coordinate value as the band-name/point-key token
// used by Expand (exported for internal/tile.GetPointValues).
func Label(dim string, v Coord) string { return coordToken(dim, v) }

func equalCoord(a, b Coord) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asFloat(v Coord) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// cartesianProduct expands N per-dimension index slices into the full list
// of index tuples, each of length N, ordered consistently with the input.
func cartesianProduct(perDim [][]int) [][]int {
	result := [][]int{{}}
	for _, dimIdxs := range perDim {
		var next [][]int
		for _, tuple := range result {
			for _, v := range dimIdxs {
				t := make([]int, len(tuple)+1)
				copy(t, tuple)
				t[len(tuple)] = v
				next = append(next, t)
			}
		}
		result = next
	}
	return result
}
