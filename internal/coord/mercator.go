package coord

import "math"

// LonLatToTile converts WGS84 lon/lat to tile coordinates at the given zoom level.
func LonLatToTile(lon, lat float64, zoom int) (x, y int) {
	n := math.Pow(2, float64(zoom))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

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

// PixelToLonLat converts a pixel position within a tile to WGS84 lon/lat.
func PixelToLonLat(z, tileX, tileY, tileSize int, px, py float64) (lon, lat float64) {
	n := math.Pow(2, float64(z))

	globalX := float64(tileX)*float64(tileSize) + px
	globalY := float64(tileY)*float64(tileSize) + py

	lon = globalX/(n*float64(tileSize))*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*globalY/(n*float64(tileSize))))) * 180.0 / math.Pi
	return
}
