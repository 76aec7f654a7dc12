// Package viewport implements the Viewport Resolver (spec.md §4.5): turns
// a camera position, viewport size, and projection into the set of active
// tile-key → render-offset pairs to draw.
package viewport

import (
	"math"

	"github.com/pyramidview/pyramid/internal/coord"
)

// Offset is a render offset (spec.md §3): a signed tile-unit displacement
// from the canonical tile position, at a given level.
type Offset struct {
	OX, OY, Level int
}

// Params describes the camera/viewport state Resolve needs.
type Params struct {
	CameraTile       coord.Key // the tile containing the camera, at the active level
	CameraFracX      float64   // camera's fractional x position within CameraTile, [0,1)
	CameraFracY      float64   // camera's fractional y position within CameraTile, [0,1)
	Zoom             float64
	ViewportWidth    float64
	ViewportHeight   float64
	DevicePixelRatio float64
	OrderX           int // {-1,+1}
	OrderY           int
	Projection       coord.Kind
}

// Resolve implements spec.md §4.5 step by step, returning active keyed by
// the canonical ("x,y,z") tile key string.
func Resolve(p Params) map[string][]Offset {
	if p.DevicePixelRatio <= 0 {
		p.DevicePixelRatio = 1
	}
	tileZ := p.CameraTile.Level
	scale := p.DevicePixelRatio * 512 * math.Pow(2, p.Zoom-float64(tileZ))

	minDX, maxDX := getOffsets(p.ViewportWidth, scale, p.CameraFracX, p.OrderX)

	var minDY, maxDY int
	if p.Projection == coord.Equirectangular {
		minDY, maxDY = getLatBasedOffsets(p.CameraTile, p.CameraFracY, p.ViewportHeight, scale, p.OrderY)
	} else {
		minDY, maxDY = getOffsets(p.ViewportHeight, scale, p.CameraFracY, p.OrderY)
	}

	active := map[string][]Offset{}
	n := coord.NumTiles(tileZ)
	for dx := minDX; dx <= maxDX; dx++ {
		for dy := minDY; dy <= maxDY; dy++ {
			rawX := p.CameraTile.X + dx
			rawY := p.CameraTile.Y + dy
			if rawY < 0 || rawY >= n {
				continue // no vertical wrap (spec.md testable property 2)
			}
			canonX, _, inRange := coord.Normalize(tileZ, rawX, rawY)
			if !inRange {
				continue
			}
			key := coord.Key{Level: tileZ, X: canonX, Y: rawY}.String()
			active[key] = append(active[key], Offset{OX: rawX - canonX, OY: 0, Level: tileZ})
		}
	}
	return active
}

// getOffsets returns [minΔ, maxΔ], in tile units relative to the camera's
// tile, of every tile the viewport overlaps when centered on the camera's
// fractional tile position. A half-viewport below 0.001 tiles collapses
// to [0,0] (spec.md §4.5 step 2).
func getOffsets(viewportPx, scale, frac float64, order int) (int, int) {
	halfTiles := viewportPx / scale / 2
	if halfTiles < 0.001 {
		return 0, 0
	}
	minD := int(math.Floor(frac - halfTiles))
	maxD := int(math.Floor(frac + halfTiles))
	if order < 0 {
		minD, maxD = -maxD, -minD
	}
	return minD, maxD
}

// getLatBasedOffsets handles the equirectangular vertical case (spec.md
// §4.5 step 3): it converts the camera tile's y boundaries to Mercator-space
// fractions, rescales scale by the resulting magnification ratio, and
// reuses getOffsets with that effective tile size.
func getLatBasedOffsets(cameraTile coord.Key, fracY, viewportHeight, scale float64, order int) (int, int) {
	n := float64(coord.NumTiles(cameraTile.Level))
	latTop := 90.0 - float64(cameraTile.Y)/n*180.0
	latBottom := 90.0 - float64(cameraTile.Y+1)/n*180.0

	mTop := mercatorYFraction(latTop)
	mBottom := mercatorYFraction(latBottom)
	equirectSpan := 1.0 / n
	mercatorSpan := mBottom - mTop
	if equirectSpan == 0 {
		return getOffsets(viewportHeight, scale, fracY, order)
	}
	magnification := mercatorSpan / equirectSpan
	return getOffsets(viewportHeight, scale*magnification, fracY, order)
}

// mercatorYFraction returns the Mercator world-y fraction (0 at north pole
// limit, 1 at south pole limit) for a latitude, consistent with the tile-y
// formula in internal/coord.
func mercatorYFraction(lat float64) float64 {
	latRad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
}
