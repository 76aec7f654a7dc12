package lod

import (
	"testing"

	"github.com/pyramidview/pyramid/internal/coord"
)

type fakeTiles map[coord.Key]bool

func (f fakeTiles) IsBufferPopulated(key coord.Key) bool { return f[key] }

// TestKeysToRenderAncestorFallback covers spec.md testable property 4: if a
// tile's buffer is unpopulated but its parent is, KeysToRender returns
// exactly [parentKey].
func TestKeysToRenderAncestorFallback(t *testing.T) {
	tiles := fakeTiles{{Level: 2, X: 1, Y: 1}: true}
	got := KeysToRender(coord.Key{Level: 3, X: 3, Y: 3}, tiles, 5)
	want := []coord.Key{{Level: 2, X: 1, Y: 1}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("KeysToRender = %v, want %v", got, want)
	}
}

// TestKeysToRenderNoSubstituteReturnsTarget covers the second half of
// property 4: if neither ancestor nor any descendant is populated, it
// returns exactly [targetKey].
func TestKeysToRenderNoSubstituteReturnsTarget(t *testing.T) {
	tiles := fakeTiles{}
	target := coord.Key{Level: 3, X: 2, Y: 2}
	got := KeysToRender(target, tiles, 5)
	if len(got) != 1 || got[0] != target {
		t.Errorf("KeysToRender = %v, want [%v]", got, target)
	}
}

// TestKeysToRenderScenarioS3 matches spec.md scenario S3.
func TestKeysToRenderScenarioS3(t *testing.T) {
	tiles := fakeTiles{{Level: 1, X: 0, Y: 0}: true}
	got := KeysToRender(coord.Key{Level: 3, X: 0, Y: 0}, tiles, 5)
	want := coord.Key{Level: 1, X: 0, Y: 0}
	if len(got) != 1 || got[0] != want {
		t.Errorf("KeysToRender = %v, want [%v]", got, want)
	}
}

func TestKeysToRenderDescendantCoverage(t *testing.T) {
	// z+1 descendants of (0,0,0): (0,0,1),(1,0,1),(0,1,1),(1,1,1).
	tiles := fakeTiles{
		{Level: 1, X: 0, Y: 0}: true,
		{Level: 1, X: 1, Y: 0}: true,
		{Level: 1, X: 0, Y: 1}: true,
		{Level: 1, X: 1, Y: 1}: true,
	}
	got := KeysToRender(coord.Key{Level: 0, X: 0, Y: 0}, tiles, 1)
	if len(got) != 4 {
		t.Fatalf("KeysToRender = %v, want 4 descendant keys", got)
	}
}

func TestAdjustedOffsetScenarioS3(t *testing.T) {
	got := AdjustedOffset([2]int{5, 7}, 3, coord.Key{Level: 1, X: 0, Y: 0})
	want := [2]int{1, 1}
	if got != want {
		t.Errorf("AdjustedOffset = %v, want %v", got, want)
	}
}

func TestAdjustedOffsetDescendantAddsResidual(t *testing.T) {
	// Substitute is a descendant: renderedLevel=2, level=0, delta=2, residual added.
	got := AdjustedOffset([2]int{0, 0}, 0, coord.Key{Level: 2, X: 3, Y: 1})
	want := [2]int{3, 1}
	if got != want {
		t.Errorf("AdjustedOffset = %v, want %v", got, want)
	}
}

func TestOverlappingAncestor(t *testing.T) {
	rendered := []coord.Key{{Level: 1, X: 0, Y: 0}}
	anc, ok := OverlappingAncestor(coord.Key{Level: 2, X: 1, Y: 0}, rendered)
	if !ok || anc != rendered[0] {
		t.Errorf("OverlappingAncestor = (%v,%v), want (%v,true)", anc, ok, rendered[0])
	}
}

func TestOverlappingAncestorNoneAtCoarserLevel(t *testing.T) {
	rendered := []coord.Key{{Level: 2, X: 1, Y: 0}}
	_, ok := OverlappingAncestor(coord.Key{Level: 2, X: 1, Y: 0}, rendered)
	if ok {
		t.Error("OverlappingAncestor found a same-level match, want none")
	}
}
