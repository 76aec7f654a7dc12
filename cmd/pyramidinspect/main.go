// Command pyramidinspect drives internal/engine against an in-memory,
// synthetic pyramid and chunk loader — no real store or GPU host is
// needed. It is the manual-exercise counterpart to the teacher's
// cmd/debug and cmd/coginfo: open something, print what the engine sees.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"

	"github.com/pyramidview/pyramid/internal/camera"
	"github.com/pyramidview/pyramid/internal/engine"
	"github.com/pyramidview/pyramid/internal/meta"
	"github.com/pyramidview/pyramid/internal/ndarray"
	"github.com/pyramidview/pyramid/internal/region"
	"github.com/pyramidview/pyramid/internal/selector"
	"github.com/pyramidview/pyramid/internal/store"
)

func main() {
	var (
		variable    string
		mode        string
		lng         float64
		lat         float64
		zoom        float64
		tileSize    int
		maxZoom     int
		crs         string
		queryRadius float64
		verbose     bool
	)

	flag.StringVar(&variable, "variable", "temp", "variable name within the synthetic pyramid")
	flag.StringVar(&mode, "mode", "texture", "render mode: texture, grid, dotgrid")
	flag.Float64Var(&lng, "lng", 8.5417, "initial camera longitude")
	flag.Float64Var(&lat, "lat", 47.3769, "initial camera latitude")
	flag.Float64Var(&zoom, "zoom", 4, "initial camera zoom")
	flag.IntVar(&tileSize, "tile-size", 256, "pixels per tile")
	flag.IntVar(&maxZoom, "max-zoom", 3, "synthetic pyramid's max zoom level")
	flag.StringVar(&crs, "crs", "EPSG:3857", "synthetic pyramid CRS: EPSG:3857 or EPSG:4326")
	flag.Float64Var(&queryRadius, "query-radius-km", 500, "region query radius in kilometers, run at the final camera position")
	flag.BoolVar(&verbose, "verbose", false, "print each scripted camera step's draw props")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyramidinspect [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Exercises the tile engine against a synthetic in-memory pyramid.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	fixture := syntheticMetadata(variable, tileSize, maxZoom, crs)
	registry := store.NewRegistry()
	for level := 0; level <= maxZoom; level++ {
		level := level
		registry.Register(level, func(ctx context.Context, idx []int) (*ndarray.Array, error) {
			return syntheticChunk(tileSize, level, idx)
		})
	}

	eng, err := engine.New(engine.Options{
		Store:    fixture,
		Version:  meta.V2,
		Variable: variable,
		Loaders:  registry,
		Selector: selector.Selector{},
		Opacity:  1,
		Display:  true,
		Mode:     engine.Mode(mode),
		SetMetadata: func(p *meta.Pyramid) {
			fmt.Printf("metadata: version=%s tileSize=%d maxZoom=%d crs=%s\n", p.Version, p.TileSize, p.MaxZoom, p.CRS)
		},
		ViewportWidth:    1024,
		ViewportHeight:   768,
		DevicePixelRatio: 1,
	})
	if err != nil {
		log.Fatalf("pyramidinspect: constructing engine: %v", err)
	}

	path := []camera.LngLat{
		{Lng: lng, Lat: lat},
		{Lng: lng + 2, Lat: lat + 1},
		{Lng: lng + 4, Lat: lat},
	}

	ctx := context.Background()
	for i, center := range path {
		if err := eng.UpdateCamera(ctx, engine.CameraUpdate{Center: center, Zoom: zoom}); err != nil {
			log.Fatalf("pyramidinspect: update camera step %d: %v", i, err)
		}
		props := eng.GetProps()
		if verbose {
			for _, p := range props {
				fmt.Printf("  step %d: tile %s level=%d offset=%v bands=%d\n", i, p.Key, p.Level, p.Offset, len(p.Buffers))
			}
		}
		fmt.Printf("step %d: center=(%.4f,%.4f) zoom=%.1f active props=%d\n", i, center.Lng, center.Lat, zoom, len(props))
	}

	stats := eng.Stats()
	fmt.Printf("stats: tiles=%d active=%d chunkCacheEntries=%d chunkCacheBytes=%s\n",
		stats.TileCount, stats.ActiveTiles, stats.ChunkCacheN, humanize.Bytes(uint64(stats.ChunkCacheKB*1024)))

	r, err := region.New(orb.Point{path[len(path)-1].Lng, path[len(path)-1].Lat}, queryRadius, region.Kilometers)
	if err != nil {
		log.Fatalf("pyramidinspect: building query region: %v", err)
	}
	result, err := eng.QueryRegion(ctx, r, selector.Selector{})
	if err != nil {
		log.Fatalf("pyramidinspect: query region: %v", err)
	}
	if result == nil {
		fmt.Println("region query: superseded by a later call, no result")
		return
	}
	fmt.Printf("region query: radius=%.0fkm samples=%d nestedKeys=%d\n", queryRadius, len(result.Lat), len(result.Nested))
}

// syntheticMetadata builds a v2-layout metadata store in memory, one
// dataset per level, shaped as a global raster chunked at tileSize.
func syntheticMetadata(variable string, tileSize, maxZoom int, crs string) meta.Store {
	datasets := ""
	arrays := map[string][]byte{}
	for level := 0; level <= maxZoom; level++ {
		if level > 0 {
			datasets += ","
		}
		datasets += fmt.Sprintf(`{"path":"%d"}`, level)

		side := tileSize << uint(level)
		arrays[fmt.Sprintf("%d/%s/.zarray", level, variable)] = []byte(fmt.Sprintf(
			`{"shape":[%d,%d],"chunks":[%d,%d],"dtype":"<f4","fill_value":null}`, side, side, tileSize, tileSize))
		arrays[fmt.Sprintf("%d/%s/.zattrs", level, variable)] = []byte(`{"_ARRAY_DIMENSIONS":["y","x"]}`)
	}

	zattrs := fmt.Sprintf(`{
		"multiscales": [{"datasets": [%s], "metadata": {"pixels_per_tile": %d}}],
		"crs": %q
	}`, datasets, tileSize, crs)

	fixture := inMemoryStore{".zattrs": []byte(zattrs)}
	for path, b := range arrays {
		fixture[path] = b
	}
	return fixture
}

type inMemoryStore map[string][]byte

func (m inMemoryStore) Fetch(path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("pyramidinspect: no such metadata path %q", path)
	}
	return b, nil
}

// syntheticChunk fabricates a chunk of constant-gradient data so a draw
// prop's buffer has something other than zeros to print: the value rises
// with level and with the chunk's x index, for visibly distinct tiles.
func syntheticChunk(tileSize, level int, idx []int) (*ndarray.Array, error) {
	n := tileSize * tileSize
	data := make([]float64, n)
	value := float64(level+1)*10 + float64(idx[len(idx)-1])
	for i := range data {
		data[i] = value
	}
	return ndarray.New([]string{"y", "x"}, []int{tileSize, tileSize}, ndarray.DTypeF4, data)
}
