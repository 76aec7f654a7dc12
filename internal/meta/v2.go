package meta

import (
	"encoding/json"
	"fmt"

	"github.com/pyramidview/pyramid/internal/ndarray"
)

// rootAttrsV2 is the root ".zattrs" blob: the multiscales array plus CRS.
type rootAttrsV2 struct {
	Multiscales []struct {
		Datasets []struct {
			Path string `json:"path"`
		} `json:"datasets"`
		Metadata struct {
			PixelsPerTile int `json:"pixels_per_tile"`
		} `json:"metadata"`
	} `json:"multiscales"`
	CRS string `json:"crs"`
}

type zarrayV2 struct {
	Shape     []int       `json:"shape"`
	Chunks    []int       `json:"chunks"`
	Dtype     string      `json:"dtype"`
	FillValue json.Number `json:"fill_value"`
}

type zattrsV2 struct {
	Dimensions []string `json:"_ARRAY_DIMENSIONS"`
}

func readV2(store Store, variable string) (*Pyramid, error) {
	rootBytes, err := store.Fetch(".zattrs")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching root .zattrs: %v", ErrMetadataInvalid, err)
	}
	var root rootAttrsV2
	if err := json.Unmarshal(rootBytes, &root); err != nil {
		return nil, fmt.Errorf("%w: decoding root .zattrs: %v", ErrMetadataInvalid, err)
	}
	if len(root.Multiscales) == 0 {
		return nil, fmt.Errorf("%w: missing multiscales", ErrMetadataInvalid)
	}
	ms := root.Multiscales[0]
	if len(ms.Datasets) == 0 {
		return nil, fmt.Errorf("%w: empty datasets", ErrMetadataInvalid)
	}
	if ms.Metadata.PixelsPerTile == 0 {
		return nil, fmt.Errorf("%w: missing pixels_per_tile", ErrMetadataInvalid)
	}

	levels := make([]int, 0, len(ms.Datasets))
	maxZoom := 0
	for _, ds := range ms.Datasets {
		lvl, err := parseLevel(ds.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMetadataInvalid, err)
		}
		levels = append(levels, lvl)
		if lvl > maxZoom {
			maxZoom = lvl
		}
	}

	p := &Pyramid{
		Version:  V2,
		Levels:   levels,
		MaxZoom:  maxZoom,
		TileSize: ms.Metadata.PixelsPerTile,
		CRS:      resolveCRS(root.CRS),
		Arrays:   map[int]ArrayMeta{},
		Axes:     map[string]Axis{},
	}

	for _, lvl := range levels {
		am, err := readArrayV2(store, lvl, variable)
		if err != nil {
			return nil, err
		}
		p.Arrays[lvl] = *am
	}

	if err := readAxesV2(store, variable, p.Arrays[levels[0]].Dims, p); err != nil {
		return nil, err
	}

	return p, nil
}

func readArrayV2(store Store, level int, variable string) (*ArrayMeta, error) {
	zarrayBytes, err := store.Fetch(fmt.Sprintf("%d/%s/.zarray", level, variable))
	if err != nil {
		return nil, fmt.Errorf("%w: fetching level %d .zarray: %v", ErrMetadataInvalid, level, err)
	}
	var za zarrayV2
	if err := json.Unmarshal(zarrayBytes, &za); err != nil {
		return nil, fmt.Errorf("%w: decoding level %d .zarray: %v", ErrMetadataInvalid, level, err)
	}

	zattrsBytes, err := store.Fetch(fmt.Sprintf("%d/%s/.zattrs", level, variable))
	if err != nil {
		return nil, fmt.Errorf("%w: fetching level %d .zattrs: %v", ErrMetadataInvalid, level, err)
	}
	var za2 zattrsV2
	if err := json.Unmarshal(zattrsBytes, &za2); err != nil {
		return nil, fmt.Errorf("%w: decoding level %d .zattrs: %v", ErrMetadataInvalid, level, err)
	}
	if len(za2.Dimensions) != len(za.Shape) {
		return nil, fmt.Errorf("%w: level %d dimension count mismatch", ErrMetadataInvalid, level)
	}

	dtype := ndarray.DType(za.Dtype)
	fill, err := dtype.DefaultFillValue()
	if err == nil {
		if n, ferr := za.FillValue.Float64(); ferr == nil {
			fill = n
		}
	}

	shape := map[string]int{}
	chunks := map[string]int{}
	for i, dim := range za2.Dimensions {
		shape[dim] = za.Shape[i]
		if i < len(za.Chunks) {
			chunks[dim] = za.Chunks[i]
		}
	}

	return &ArrayMeta{
		Dims:   za2.Dimensions,
		Shape:  shape,
		Chunks: chunks,
		DType:  dtype,
		Fill:   fill,
	}, nil
}

// readAxesV2 fetches the coordinate arrays for non-spatial dimensions at
// level 0, per spec.md §4.1 ("Coordinates are fetched as separate
// one-dimensional arrays at level 0").
func readAxesV2(store Store, variable string, dims []string, p *Pyramid) error {
	for _, dim := range dims {
		if isSpatialDim(dim) {
			continue
		}
		raw, err := store.Fetch(fmt.Sprintf("0/%s/0", dim))
		if err != nil {
			continue // axis array absent: dimension remains unconstrained
		}
		var values []any
		if err := json.Unmarshal(raw, &values); err != nil {
			continue
		}
		p.Axes[dim] = Axis{Name: dim, Values: values}
	}
	return nil
}

func isSpatialDim(dim string) bool {
	switch dim {
	case "x", "y", "lon", "lat":
		return true
	default:
		return false
	}
}

func parseLevel(path string) (int, error) {
	var lvl int
	if _, err := fmt.Sscanf(path, "%d", &lvl); err != nil {
		return 0, fmt.Errorf("invalid dataset path %q: %w", path, err)
	}
	return lvl, nil
}
