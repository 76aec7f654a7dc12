package coord

import "math"

// LonLatToTileForKind converts a lon/lat to tile coordinates at a zoom
// level under either supported projection (spec.md §4.8's tile
// enumeration needs this for both Mercator and equirectangular pyramids).
func LonLatToTileForKind(lon, lat float64, zoom int, kind Kind) (x, y int) {
	if kind == Mercator {
		return LonLatToTile(lon, lat, zoom)
	}
	n := math.Pow(2, float64(zoom))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	y = int(math.Floor((90.0 - lat) / 180.0 * n))

	maxTile := int(n) - 1
	if x < 0 {
		x = 0
	}
	if x > maxTile {
		x = maxTile
	}
	if y < 0 {
		y = 0
	}
	if y > maxTile {
		y = maxTile
	}
	return
}

// FracTileForKind returns the tile containing (lon,lat) at zoom under the
// given projection, plus the camera's fractional position within that tile
// in [0,1) — the "tile-space fractional position" the viewport resolver's
// Params needs (spec.md §4.5).
func FracTileForKind(lon, lat float64, zoom int, kind Kind) (tileX, tileY int, fracX, fracY float64) {
	n := math.Pow(2, float64(zoom))
	gx := (lon + 180.0) / 360.0 * n

	var gy float64
	if kind == Mercator {
		latRad := lat * math.Pi / 180.0
		gy = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	} else {
		gy = (90.0 - lat) / 180.0 * n
	}

	tileX = int(math.Floor(gx))
	tileY = int(math.Floor(gy))
	maxTile := int(n) - 1
	if tileX < 0 {
		tileX = 0
	}
	if tileX > maxTile {
		tileX = maxTile
	}
	if tileY < 0 {
		tileY = 0
	}
	if tileY > maxTile {
		tileY = maxTile
	}

	fracX = gx - math.Floor(gx)
	fracY = gy - math.Floor(gy)
	return
}

// TileToLonLatForKind converts a pixel position within a tile (z,x,y) back
// to lon/lat, under either supported projection.
func TileToLonLatForKind(z, tileX, tileY, tileSize int, px, py float64, kind Kind) (lon, lat float64) {
	if kind == Mercator {
		return PixelToLonLat(z, tileX, tileY, tileSize, px, py)
	}
	n := math.Pow(2, float64(z))
	globalX := float64(tileX)*float64(tileSize) + px
	globalY := float64(tileY)*float64(tileSize) + py
	lon = globalX/(n*float64(tileSize))*360.0 - 180.0
	lat = 90.0 - globalY/(n*float64(tileSize))*180.0
	return
}
