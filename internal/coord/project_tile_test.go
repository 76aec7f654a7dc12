package coord

import (
	"math"
	"testing"
)

func TestLonLatToTileForKindMercatorMatchesLonLatToTile(t *testing.T) {
	x1, y1 := LonLatToTileForKind(8.5417, 47.3769, 10, Mercator)
	x2, y2 := LonLatToTile(8.5417, 47.3769, 10)
	if x1 != x2 || y1 != y2 {
		t.Errorf("LonLatToTileForKind(Mercator) = (%d,%d), want (%d,%d)", x1, y1, x2, y2)
	}
}

func TestLonLatToTileForKindEquirectangularOrigin(t *testing.T) {
	x, y := LonLatToTileForKind(0, 0, 1, Equirectangular)
	if x != 1 || y != 1 {
		t.Errorf("LonLatToTileForKind(Equirectangular, 0,0,1) = (%d,%d), want (1,1)", x, y)
	}
}

func TestFracTileForKindMatchesLonLatToTile(t *testing.T) {
	tx, ty, fx, fy := FracTileForKind(8.5417, 47.3769, 10, Mercator)
	wantX, wantY := LonLatToTile(8.5417, 47.3769, 10)
	if tx != wantX || ty != wantY {
		t.Errorf("FracTileForKind tile = (%d,%d), want (%d,%d)", tx, ty, wantX, wantY)
	}
	if fx < 0 || fx >= 1 || fy < 0 || fy >= 1 {
		t.Errorf("FracTileForKind fractions out of [0,1): fx=%v fy=%v", fx, fy)
	}
}

func TestFracTileForKindEquirectangularOrigin(t *testing.T) {
	tx, ty, fx, fy := FracTileForKind(0, 0, 1, Equirectangular)
	if tx != 1 || ty != 1 {
		t.Errorf("FracTileForKind(0,0,1) tile = (%d,%d), want (1,1)", tx, ty)
	}
	// At zoom 1 the origin sits on the top-left corner of tile (1,1).
	if math.Abs(fx) > 1e-9 || math.Abs(fy) > 1e-9 {
		t.Errorf("FracTileForKind(0,0,1) frac = (%v,%v), want (0,0)", fx, fy)
	}
}

func TestTileToLonLatForKindEquirectangularRoundTrip(t *testing.T) {
	z, tx, ty, size := 4, 3, 5, 256
	lon, lat := 10.0, 20.0
	px, py := float64(size) / 2, float64(size) / 2
	gotLon, gotLat := TileToLonLatForKind(z, tx, ty, size, px, py, Equirectangular)
	x2, y2 := LonLatToTileForKind(gotLon, gotLat, z, Equirectangular)
	if x2 != tx || y2 != ty {
		t.Errorf("round-trip tile mismatch: got (%d,%d), want (%d,%d)", x2, y2, tx, ty)
	}
	_ = lon
	_ = lat
}
