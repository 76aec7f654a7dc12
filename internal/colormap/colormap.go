// Package colormap builds the 1-D colormap texture the shader samples to
// map a normalized [0,1] value to an RGBA color (spec.md §6's colormap
// uniform/texture contract).
package colormap

import "fmt"

// Stop is one colormap control point: a position in [0,1] and its color.
type Stop struct {
	Position float64
	R, G, B, A float64
}

// Colormap is an ordered, position-sorted list of stops.
type Colormap struct {
	Stops []Stop
}

// New validates and wraps a set of stops; they must already be sorted by
// position and span [0,1].
func New(stops []Stop) (*Colormap, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("colormap: need at least 2 stops, got %d", len(stops))
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Position < stops[i-1].Position {
			return nil, fmt.Errorf("colormap: stops must be sorted by position")
		}
	}
	if stops[0].Position != 0 || stops[len(stops)-1].Position != 1 {
		return nil, fmt.Errorf("colormap: stops must span [0,1]")
	}
	return &Colormap{Stops: stops}, nil
}

// Texture rasterizes the colormap to a width-wide RGBA row, linearly
// interpolating between adjacent stops, ready for upload as a 1-D texture.
func (c *Colormap) Texture(width int) []float32 {
	out := make([]float32, width*4)
	for i := 0; i < width; i++ {
		t := float64(i) / float64(width-1)
		r, g, b, a := c.sample(t)
		out[i*4+0] = float32(r)
		out[i*4+1] = float32(g)
		out[i*4+2] = float32(b)
		out[i*4+3] = float32(a)
	}
	return out
}

func (c *Colormap) sample(t float64) (r, g, b, a float64) {
	stops := c.Stops
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].Position {
			lo, hi := stops[i-1], stops[i]
			span := hi.Position - lo.Position
			f := 0.0
			if span > 0 {
				f = (t - lo.Position) / span
			}
			return lerp(lo.R, hi.R, f), lerp(lo.G, hi.G, f), lerp(lo.B, hi.B, f), lerp(lo.A, hi.A, f)
		}
	}
	last := stops[len(stops)-1]
	return last.R, last.G, last.B, last.A
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }
