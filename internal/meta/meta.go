// Package meta parses pyramid metadata (spec.md §4.1): the v2 and v3
// on-disk layouts both resolve to the same Pyramid description the rest
// of the engine consumes.
package meta

import (
	"errors"
	"fmt"
	"log"

	"github.com/pyramidview/pyramid/internal/coord"
	"github.com/pyramidview/pyramid/internal/ndarray"
)

// ErrMetadataInvalid is the MetadataInvalid error kind (spec.md §7):
// missing/empty multiscales, missing pixels_per_tile, unsupported version.
var ErrMetadataInvalid = errors.New("meta: invalid pyramid metadata")

// Version identifies the on-disk metadata layout.
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
)

// Axis describes one non-spatial dimension's coordinate values, fetched
// once at level 0 (spec.md §4.1).
type Axis struct {
	Name   string
	Values []any
}

// ArrayMeta describes one variable's array metadata at one level.
type ArrayMeta struct {
	Dims   []string
	Shape  map[string]int
	Chunks map[string]int
	DType  ndarray.DType
	Fill   float64
}

// Pyramid is the fully resolved metadata the engine builds tiles from.
type Pyramid struct {
	Version  Version
	Levels   []int
	MaxZoom  int
	TileSize int
	CRS      string
	Arrays   map[int]ArrayMeta // level -> array metadata
	Axes     map[string]Axis   // non-spatial dim name -> coordinate values
}

// Store is the transport the host provides; Read never interprets the
// bytes itself beyond JSON decoding (spec.md §6's store interface).
type Store interface {
	// Fetch returns the raw bytes at path, relative to the pyramid source.
	Fetch(path string) ([]byte, error)
}

// Read dispatches to readV2/readV3 per spec.md §4.1.
func Read(store Store, version Version, variable string) (*Pyramid, error) {
	switch version {
	case V2:
		return readV2(store, variable)
	case V3:
		return readV3(store, variable)
	default:
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMetadataInvalid, version)
	}
}

// resolveCRS applies the EPSG:3857 default with a one-time warning, per
// spec.md §4.1 ("crs defaulting to EPSG:3857 with a warning").
func resolveCRS(crs string) string {
	if crs != "" {
		return crs
	}
	log.Printf("WARNING: meta: pyramid metadata has no crs, defaulting to EPSG:3857")
	return "EPSG:3857"
}

// ProjectionKind resolves the projection per spec.md §4.7: CRS mapping
// EPSG:3857→mercator, EPSG:4326→equirectangular.
func (p *Pyramid) ProjectionKind() (coord.Kind, error) {
	return coord.KindForCRS(p.CRS)
}
