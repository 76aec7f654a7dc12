package meta

import (
	"encoding/json"
	"fmt"

	"github.com/pyramidview/pyramid/internal/ndarray"
)

type rootZarrJSON struct {
	Attributes struct {
		Multiscales []struct {
			Datasets []struct {
				Path string `json:"path"`
			} `json:"datasets"`
			Metadata struct {
				PixelsPerTile int `json:"pixels_per_tile"`
			} `json:"metadata"`
		} `json:"multiscales"`
		CRS string `json:"crs"`
	} `json:"attributes"`
}

type arrayZarrJSON struct {
	Shape     []int `json:"shape"`
	ChunkGrid struct {
		Configuration struct {
			ChunkShape []int `json:"chunk_shape"`
		} `json:"configuration"`
	} `json:"chunk_grid"`
	Codecs []struct {
		Name          string `json:"name"`
		Configuration struct {
			ChunkShape []int `json:"chunk_shape"`
		} `json:"configuration"`
	} `json:"codecs"`
	FillValue  json.Number `json:"fill_value"`
	DataType   string      `json:"data_type"`
	Attributes struct {
		Dimensions []string `json:"_ARRAY_DIMENSIONS"`
	} `json:"attributes"`
}

func readV3(store Store, variable string) (*Pyramid, error) {
	rootBytes, err := store.Fetch("zarr.json")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching root zarr.json: %v", ErrMetadataInvalid, err)
	}
	var root rootZarrJSON
	if err := json.Unmarshal(rootBytes, &root); err != nil {
		return nil, fmt.Errorf("%w: decoding root zarr.json: %v", ErrMetadataInvalid, err)
	}
	if len(root.Attributes.Multiscales) == 0 {
		return nil, fmt.Errorf("%w: missing multiscales", ErrMetadataInvalid)
	}
	ms := root.Attributes.Multiscales[0]
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
		Version:  V3,
		Levels:   levels,
		MaxZoom:  maxZoom,
		TileSize: ms.Metadata.PixelsPerTile,
		CRS:      resolveCRS(root.Attributes.CRS),
		Arrays:   map[int]ArrayMeta{},
		Axes:     map[string]Axis{},
	}

	for _, lvl := range levels {
		am, err := readArrayV3(store, lvl, variable)
		if err != nil {
			return nil, err
		}
		p.Arrays[lvl] = *am
	}

	if err := readAxesV3(store, p.Arrays[levels[0]].Dims, p); err != nil {
		return nil, err
	}

	return p, nil
}

func readArrayV3(store Store, level int, variable string) (*ArrayMeta, error) {
	raw, err := store.Fetch(fmt.Sprintf("%d/%s/zarr.json", level, variable))
	if err != nil {
		return nil, fmt.Errorf("%w: fetching level %d zarr.json: %v", ErrMetadataInvalid, level, err)
	}
	var az arrayZarrJSON
	if err := json.Unmarshal(raw, &az); err != nil {
		return nil, fmt.Errorf("%w: decoding level %d zarr.json: %v", ErrMetadataInvalid, level, err)
	}
	if len(az.Attributes.Dimensions) != len(az.Shape) {
		return nil, fmt.Errorf("%w: level %d dimension count mismatch", ErrMetadataInvalid, level)
	}

	chunkShape := az.ChunkGrid.Configuration.ChunkShape
	for _, c := range az.Codecs {
		if c.Name == "sharding_indexed" && len(c.Configuration.ChunkShape) > 0 {
			chunkShape = c.Configuration.ChunkShape
		}
	}

	dtype := ndarray.DType(az.DataType)
	fill, err := dtype.DefaultFillValue()
	if err == nil {
		if n, ferr := az.FillValue.Float64(); ferr == nil {
			fill = n
		}
	}

	shape := map[string]int{}
	chunks := map[string]int{}
	for i, dim := range az.Attributes.Dimensions {
		shape[dim] = az.Shape[i]
		if i < len(chunkShape) {
			chunks[dim] = chunkShape[i]
		}
	}

	return &ArrayMeta{
		Dims:   az.Attributes.Dimensions,
		Shape:  shape,
		Chunks: chunks,
		DType:  dtype,
		Fill:   fill,
	}, nil
}

func readAxesV3(store Store, dims []string, p *Pyramid) error {
	for _, dim := range dims {
		if isSpatialDim(dim) {
			continue
		}
		raw, err := store.Fetch(fmt.Sprintf("0/%s/zarr.json", dim))
		if err != nil {
			continue
		}
		var az arrayZarrJSON
		if err := json.Unmarshal(raw, &az); err != nil {
			continue
		}
		valsRaw, err := store.Fetch(fmt.Sprintf("0/%s/c/0", dim))
		if err != nil {
			continue
		}
		var values []any
		if err := json.Unmarshal(valsRaw, &values); err != nil {
			continue
		}
		p.Axes[dim] = Axis{Name: dim, Values: values}
	}
	return nil
}
