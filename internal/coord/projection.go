// Package coord implements the two map projections the engine supports
// (spec.md glossary: Web Mercator / Equirectangular) plus the tile-key
// arithmetic the viewport resolver and region query depend on.
package coord

import (
	"errors"
	"fmt"
)

// ErrProjectionInvalid is returned for an unknown projection name or CRS —
// spec.md §7's ProjectionInvalid error kind, fatal at engine construction.
var ErrProjectionInvalid = errors.New("coord: invalid projection")

// Kind enumerates the two projections spec.md §1/§4.7 supports.
type Kind int

const (
	Mercator Kind = iota
	Equirectangular
)

func (k Kind) String() string {
	switch k {
	case Mercator:
		return "mercator"
	case Equirectangular:
		return "equirectangular"
	default:
		return "unknown"
	}
}

// ParseKind resolves an explicit `projection` construction prop (spec.md
// §4.7: "projection from prop (overrides metadata)").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "mercator":
		return Mercator, nil
	case "equirectangular":
		return Equirectangular, nil
	default:
		return 0, fmt.Errorf("%w: unknown projection %q", ErrProjectionInvalid, s)
	}
}

// KindForCRS maps a pyramid CRS to the projection the engine renders with:
// EPSG:3857 → mercator, EPSG:4326 → equirectangular (spec.md §4.7).
func KindForCRS(crs string) (Kind, error) {
	switch crs {
	case "EPSG:3857":
		return Mercator, nil
	case "EPSG:4326":
		return Equirectangular, nil
	default:
		return 0, fmt.Errorf("%w: unsupported CRS %q", ErrProjectionInvalid, crs)
	}
}
