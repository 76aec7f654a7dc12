// Package region implements the Region Query engine (spec.md §4.8): given
// a geodesic circle, enumerate the tiles it intersects, ensure their
// chunks are loaded, and sample every pixel inside the circle.
package region

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/sync/errgroup"

	"github.com/pyramidview/pyramid/internal/coord"
	"github.com/pyramidview/pyramid/internal/selector"
	"github.com/pyramidview/pyramid/internal/tile"
)

// ErrUnitsInvalid is the UnitsInvalid error kind (spec.md §7): region
// units outside {kilometers, miles}.
var ErrUnitsInvalid = errors.New("region: invalid units")

// Unit is the radius unit a region is specified in.
type Unit string

const (
	Kilometers Unit = "kilometers"
	Miles      Unit = "miles"
)

// polygonVertices is the number of vertices approximating the circle on
// the sphere, per spec.md §3.
const polygonVertices = 64

// Region is a circle: center, radius, and unit, plus its precomputed
// polygon approximation (spec.md §3).
type Region struct {
	Center      orb.Point
	RadiusMeters float64
	Unit        Unit
	Polygon     []orb.Point
}

// New validates units and precomputes the 64-vertex polygon approximation.
func New(center orb.Point, radius float64, unit Unit) (*Region, error) {
	var meters float64
	switch unit {
	case Kilometers:
		meters = radius * 1000
	case Miles:
		meters = radius * 1609.344
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnitsInvalid, unit)
	}

	poly := make([]orb.Point, polygonVertices)
	for i := 0; i < polygonVertices; i++ {
		bearing := float64(i) / polygonVertices * 360
		poly[i] = geo.PointAtBearingAndDistance(center, bearing, meters)
	}

	return &Region{Center: center, RadiusMeters: meters, Unit: unit, Polygon: poly}, nil
}

// Contains reports whether a point's geodesic distance to the center is
// within the radius.
func (r *Region) Contains(p orb.Point) bool {
	return geo.Distance(r.Center, p) <= r.RadiusMeters
}

// TilesOfRegion implements getTilesOfRegion (spec.md §4.8): the tile
// containing the center, plus every tile along the rhumb line from the
// center to each of the 64 polygon vertices.
func TilesOfRegion(r *Region, level int, projection coord.Kind) []coord.Key {
	seen := map[coord.Key]struct{}{}
	centerX, centerY := coord.LonLatToTileForKind(r.Center[0], r.Center[1], level, projection)
	seen[coord.Key{Level: level, X: centerX, Y: centerY}] = struct{}{}

	for _, v := range r.Polygon {
		vx, vy := coord.LonLatToTileForKind(v[0], v[1], level, projection)
		walkRhumbTiles(centerX, centerY, vx, vy, level, seen)
	}

	keys := make([]coord.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

// walkRhumbTiles steps from (x0,y0) to (x1,y1) one tile per unit of
// max(|Δx|,|Δy|) along the straight tile-grid line between them — the
// tile-grid projection of the rhumb line's constant bearing (spec.md §4.8).
func walkRhumbTiles(x0, y0, x1, y1, level int, seen map[coord.Key]struct{}) {
	dx := x1 - x0
	dy := y1 - y0
	steps := int(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy))))
	if steps == 0 {
		seen[coord.Key{Level: level, X: x0, Y: y0}] = struct{}{}
		return
	}
	for s := 0; s <= steps; s++ {
		f := float64(s) / float64(steps)
		x := x0 + int(math.Round(float64(dx)*f))
		y := y0 + int(math.Round(float64(dy)*f))
		seen[coord.Key{Level: level, X: x, Y: y}] = struct{}{}
	}
}

// TileProvider resolves the tile owning a key, loading its metadata/chunk
// staging lazily if needed — implemented by the engine (spec.md §4.8).
type TileProvider interface {
	Tile(key coord.Key) (*tile.Tile, error)
}

// Result is a region query's accumulated samples: parallel Lat/Lon arrays,
// plus either Flat values (selector fully fixes the non-spatial dimensions)
// or Nested values keyed by the joined varying-dimension labels.
type Result struct {
	Lat, Lon []float64
	Flat     []float64
	Nested   map[string][]float64
}

// Query implements spec.md §4.8: enumerate the region's tiles, fan out one
// future per tile to load its chunks and sample every pixel whose geodesic
// distance to the center is within the radius, then merge the per-tile
// results in tile order (spec.md §4.8's fan-out-and-wait phrasing).
func Query(ctx context.Context, r *Region, level int, projection coord.Kind, tileSize int, axes selector.Axes, sel selector.Selector, provider TileProvider) (*Result, error) {
	keys := TilesOfRegion(r, level, projection)

	perTile := make([]*Result, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			res, err := queryTile(ctx, r, key, projection, tileSize, axes, sel, provider)
			if err != nil {
				return err
			}
			perTile[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, res := range perTile {
		result.Lat = append(result.Lat, res.Lat...)
		result.Lon = append(result.Lon, res.Lon...)
		result.Flat = append(result.Flat, res.Flat...)
		for label, vs := range res.Nested {
			if result.Nested == nil {
				result.Nested = map[string][]float64{}
			}
			result.Nested[label] = append(result.Nested[label], vs...)
		}
	}
	return result, nil
}

// queryTile loads one tile's chunks and samples the pixels inside the
// region, returning that tile's contribution to the overall Result.
func queryTile(ctx context.Context, r *Region, key coord.Key, projection coord.Kind, tileSize int, axes selector.Axes, sel selector.Selector, provider TileProvider) (*Result, error) {
	t, err := provider.Tile(key)
	if err != nil {
		return nil, fmt.Errorf("region: resolving tile %s: %w", key, err)
	}

	chunkList, err := selector.ChunkSet(sel, axes, key.X, key.Y)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	if _, err := t.LoadChunks(ctx, chunkList); err != nil {
		return nil, fmt.Errorf("region: loading chunks for tile %s: %w", key, err)
	}

	result := &Result{}
	for py := 0; py < tileSize; py++ {
		for px := 0; px < tileSize; px++ {
			lon, lat := coord.TileToLonLatForKind(key.Level, key.X, key.Y, tileSize, float64(px)+0.5, float64(py)+0.5, projection)
			if !r.Contains(orb.Point{lon, lat}) {
				continue
			}

			values, err := t.GetPointValues(sel, px, py)
			if err != nil {
				return nil, fmt.Errorf("region: sampling tile %s pixel (%d,%d): %w", key, px, py, err)
			}

			result.Lat = append(result.Lat, lat)
			result.Lon = append(result.Lon, lon)
			for _, v := range values {
				if len(v.Keys) == 0 {
					result.Flat = append(result.Flat, v.Value)
					continue
				}
				if result.Nested == nil {
					result.Nested = map[string][]float64{}
				}
				label := strings.Join(v.Keys, "|")
				result.Nested[label] = append(result.Nested[label], v.Value)
			}
		}
	}
	return result, nil
}

// RhumbBearing computes the constant compass bearing (degrees, 0=north)
// from one point to another along a rhumb line. No ecosystem package in
// the pack offers this, so it is hand-written from the standard
// closed-form formula (spec.md §4.8).
func RhumbBearing(from, to orb.Point) float64 {
	lat1 := from[1] * math.Pi / 180
	lat2 := to[1] * math.Pi / 180
	dLon := (to[0] - from[0]) * math.Pi / 180

	dPhi := math.Log(math.Tan(math.Pi/4+lat2/2) / math.Tan(math.Pi/4+lat1/2))
	if math.Abs(dLon) > math.Pi {
		if dLon > 0 {
			dLon = -(2*math.Pi - dLon)
		} else {
			dLon = 2*math.Pi + dLon
		}
	}

	bearing := math.Atan2(dLon, dPhi)
	deg := bearing * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
