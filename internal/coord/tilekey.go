package coord

import "fmt"

// Key identifies a tile within the pyramid: a level plus the tile's column
// and row at that level.
type Key struct {
	Level int
	X     int
	Y     int
}

// String renders the canonical "x,y,z" form used as a map key throughout
// the engine (spec.md testable property 1: key round-trips through its
// string form).
func (k Key) String() string {
	return fmt.Sprintf("%d,%d,%d", k.X, k.Y, k.Level)
}

// ParseKey parses the canonical "x,y,z" form back into a Key.
func ParseKey(s string) (Key, error) {
	var x, y, z int
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &x, &y, &z); err != nil {
		return Key{}, fmt.Errorf("coord: invalid tile key %q: %w", s, err)
	}
	return Key{Level: z, X: x, Y: y}, nil
}

// NumTiles returns the number of tiles per side at the given level (2^level).
func NumTiles(level int) int {
	if level < 0 {
		return 0
	}
	return 1 << uint(level)
}

// Normalize wraps the tile's column horizontally (longitude has no
// natural origin, spec.md testable property 2) and reports whether the
// row is in range; the row is never wrapped, since latitude is bounded.
func Normalize(level, x, y int) (nx, ny int, inRange bool) {
	n := NumTiles(level)
	if n == 0 {
		return 0, 0, false
	}
	nx = x % n
	if nx < 0 {
		nx += n
	}
	return nx, y, y >= 0 && y < n
}
