package region

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/pyramidview/pyramid/internal/cache"
	"github.com/pyramidview/pyramid/internal/coord"
	"github.com/pyramidview/pyramid/internal/ndarray"
	"github.com/pyramidview/pyramid/internal/selector"
	"github.com/pyramidview/pyramid/internal/store"
	"github.com/pyramidview/pyramid/internal/tile"
)

type singleTileProvider struct {
	t *tile.Tile
	k coord.Key
}

func (p *singleTileProvider) Tile(key coord.Key) (*tile.Tile, error) {
	return p.t, nil
}

func TestNewRejectsInvalidUnits(t *testing.T) {
	_, err := New(orb.Point{8.54, 47.37}, 5, "furlongs")
	if err == nil {
		t.Fatal("New with invalid units returned nil error")
	}
}

func TestNewConvertsMilesAndKilometers(t *testing.T) {
	km, err := New(orb.Point{0, 0}, 1, Kilometers)
	if err != nil {
		t.Fatal(err)
	}
	if km.RadiusMeters != 1000 {
		t.Errorf("1 km = %v meters, want 1000", km.RadiusMeters)
	}

	mi, err := New(orb.Point{0, 0}, 1, Miles)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mi.RadiusMeters-1609.344) > 1e-9 {
		t.Errorf("1 mile = %v meters, want 1609.344", mi.RadiusMeters)
	}
}

func TestNewPrecomputesPolygon(t *testing.T) {
	r, err := New(orb.Point{8.54, 47.37}, 5, Kilometers)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Polygon) != polygonVertices {
		t.Fatalf("len(Polygon) = %d, want %d", len(r.Polygon), polygonVertices)
	}
}

func TestContains(t *testing.T) {
	r, err := New(orb.Point{0, 0}, 10, Kilometers)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Contains(orb.Point{0, 0}) {
		t.Error("center point not contained")
	}
	if r.Contains(orb.Point{10, 10}) {
		t.Error("far point incorrectly contained")
	}
}

func TestTilesOfRegionIncludesCenterTile(t *testing.T) {
	r, err := New(orb.Point{8.54, 47.37}, 2, Kilometers)
	if err != nil {
		t.Fatal(err)
	}
	keys := TilesOfRegion(r, 10, coord.Mercator)
	cx, cy := coord.LonLatToTileForKind(r.Center[0], r.Center[1], 10, coord.Mercator)
	found := false
	for _, k := range keys {
		if k.X == cx && k.Y == cy && k.Level == 10 {
			found = true
		}
	}
	if !found {
		t.Error("TilesOfRegion did not include the center tile")
	}
}

func TestTilesOfRegionMultipleTilesForLargeRadius(t *testing.T) {
	r, err := New(orb.Point{8.54, 47.37}, 500, Kilometers)
	if err != nil {
		t.Fatal(err)
	}
	keys := TilesOfRegion(r, 8, coord.Mercator)
	if len(keys) < 2 {
		t.Errorf("len(keys) = %d, want multiple tiles for a large radius", len(keys))
	}
}

func TestWalkRhumbTilesConnectsEndpoints(t *testing.T) {
	seen := map[coord.Key]struct{}{}
	walkRhumbTiles(0, 0, 5, 3, 4, seen)
	if _, ok := seen[coord.Key{Level: 4, X: 0, Y: 0}]; !ok {
		t.Error("walk did not include start tile")
	}
	if _, ok := seen[coord.Key{Level: 4, X: 5, Y: 3}]; !ok {
		t.Error("walk did not include end tile")
	}
	if len(seen) < 5 {
		t.Errorf("len(seen) = %d, want at least 5 steps", len(seen))
	}
}

func TestQueryAccumulatesFlatValues(t *testing.T) {
	axes := selector.Axes{
		Dims:     []string{"y", "x"},
		Shape:    map[string]int{"y": 8, "x": 8},
		Chunks:   map[string]int{"y": 8, "x": 8},
		SpatialX: "x",
		SpatialY: "y",
	}
	loader := func(ctx context.Context, idx []int) (*ndarray.Array, error) {
		n := 8 * 8
		data := make([]float64, n)
		for i := range data {
			data[i] = 3
		}
		return ndarray.New([]string{"y", "x"}, []int{8, 8}, ndarray.DTypeF4, data)
	}
	cc := cache.New(0, 64)
	var _ store.ChunkLoader = loader
	key := coord.Key{Level: 0, X: 0, Y: 0}
	tl := tile.New(key, "temp", axes, nil, 8, cc, loader)

	r, err := New(orb.Point{0, 0}, 20000, Kilometers)
	if err != nil {
		t.Fatal(err)
	}

	result, err := Query(context.Background(), r, 0, coord.Equirectangular, 8, axes, selector.Selector{}, &singleTileProvider{t: tl, k: key})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Flat) == 0 {
		t.Fatal("Query returned no flat values")
	}
	if len(result.Lat) != len(result.Flat) || len(result.Lon) != len(result.Flat) {
		t.Errorf("Lat/Lon length mismatch: lat=%d lon=%d flat=%d", len(result.Lat), len(result.Lon), len(result.Flat))
	}
	for _, v := range result.Flat {
		if v != 3 {
			t.Errorf("value = %v, want 3", v)
		}
	}
}

func TestRhumbBearingCardinalDirections(t *testing.T) {
	north := RhumbBearing(orb.Point{0, 0}, orb.Point{0, 10})
	if math.Abs(north) > 1e-6 {
		t.Errorf("bearing due north = %v, want ~0", north)
	}
	east := RhumbBearing(orb.Point{0, 0}, orb.Point{10, 0})
	if math.Abs(east-90) > 1e-6 {
		t.Errorf("bearing due east = %v, want ~90", east)
	}
	south := RhumbBearing(orb.Point{0, 0}, orb.Point{0, -10})
	if math.Abs(south-180) > 1e-6 {
		t.Errorf("bearing due south = %v, want ~180", south)
	}
}
