// Package lod implements the LOD Fallback Policy (spec.md §4.6): choosing
// ancestor or descendant substitutes for a tile whose buffer is not yet
// populated, and adjusting render offsets so the substitute draws in the
// correct screen location.
package lod

import (
	"math"

	"github.com/pyramidview/pyramid/internal/coord"
)

// TileSet reports whether a tile's buffer is populated, by tile key.
type TileSet interface {
	IsBufferPopulated(key coord.Key) bool
}

// KeysToRender implements getKeysToRender (spec.md §4.6).
func KeysToRender(key coord.Key, tiles TileSet, maxZoom int) []coord.Key {
	if anc, ok := ancestor(key, tiles); ok {
		return []coord.Key{anc}
	}
	if desc, ok := bestDescendantLevel(key, tiles, maxZoom); ok {
		return desc
	}
	return []coord.Key{key}
}

// ancestor walks from (x,y,z) toward (⌊x/2⌋,⌊y/2⌋,z−1) down to z=0,
// returning the first key whose Tile reports IsBufferPopulated.
func ancestor(key coord.Key, tiles TileSet) (coord.Key, bool) {
	x, y, z := key.X, key.Y, key.Level
	for z > 0 {
		x, y, z = x/2, y/2, z-1
		anc := coord.Key{Level: z, X: x, Y: y}
		if tiles.IsBufferPopulated(anc) {
			return anc, true
		}
	}
	return coord.Key{}, false
}

// bestDescendantLevel enumerates, at each finer level up to maxZoom, the
// (Δ+1)² descendants rooted at (x·2^Δ, y·2^Δ, z+Δ) and keeps the level
// with the strictly greatest coverage ratio (Open Question resolved per
// spec.md §9: strict '>' so ties favor the coarser level, least churn).
func bestDescendantLevel(key coord.Key, tiles TileSet, maxZoom int) ([]coord.Key, bool) {
	var bestKeys []coord.Key
	bestCoverage := 0.0
	found := false

	for z := key.Level + 1; z <= maxZoom; z++ {
		delta := z - key.Level
		side := delta + 1
		total := side * side
		populated := 0
		keys := make([]coord.Key, 0, total)
		baseX := key.X << uint(delta)
		baseY := key.Y << uint(delta)
		for dy := 0; dy < side; dy++ {
			for dx := 0; dx < side; dx++ {
				k := coord.Key{Level: z, X: baseX + dx, Y: baseY + dy}
				keys = append(keys, k)
				if tiles.IsBufferPopulated(k) {
					populated++
				}
			}
		}
		coverage := float64(populated) / float64(total)
		if coverage > bestCoverage {
			bestCoverage = coverage
			bestKeys = keys
			found = true
		}
	}
	return bestKeys, found && bestCoverage > 0
}

// OverlappingAncestor returns any rendered key at strictly coarser level
// whose (x,y) is the ancestor of key's, per spec.md §4.6 — used to suppress
// drawing a child when a coarser stand-in already covers the same pixels.
func OverlappingAncestor(key coord.Key, renderedKeys []coord.Key) (coord.Key, bool) {
	for _, r := range renderedKeys {
		if r.Level >= key.Level {
			continue
		}
		delta := key.Level - r.Level
		if key.X>>uint(delta) == r.X && key.Y>>uint(delta) == r.Y {
			return r, true
		}
	}
	return coord.Key{}, false
}

// AdjustedOffset divides offset by 2^(level-renderedLevel); when the
// substitute is a descendant (renderedLevel > level), the descendant's
// residual position within the target tile is added back so it occupies
// its correct sub-tile position (spec.md §4.6).
func AdjustedOffset(offset [2]int, level int, renderedKey coord.Key) [2]int {
	delta := level - renderedKey.Level
	ox, oy := float64(offset[0]), float64(offset[1])
	scale := math.Pow(2, float64(delta))
	ox /= scale
	oy /= scale

	if renderedKey.Level > level {
		d := renderedKey.Level - level
		mod := 1 << uint(d)
		ox += float64(renderedKey.X % mod)
		oy += float64(renderedKey.Y % mod)
	}
	return [2]int{int(ox), int(oy)}
}
