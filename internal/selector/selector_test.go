package selector

import (
	"sort"
	"testing"
)

func TestExpandNoListDims(t *testing.T) {
	sel := Selector{"time": Scalar(2020.0)}
	bands := Expand(sel)
	if bands != nil {
		t.Fatalf("Expand with no list dims = %v, want nil", bands)
	}
}

func TestExpandSingleListDim(t *testing.T) {
	sel := Selector{"time": List(2020.0, 2021.0)}
	bands := Expand(sel)
	names := bandNames(bands)
	want := []string{"time_2020", "time_2021"}
	if !equalStrSlices(names, want) {
		t.Fatalf("band names = %v, want %v", names, want)
	}
}

// TestExpandCartesianProduct covers spec.md testable property 7: for
// selector {a: [1,2], b: ['x','y']}, Expand returns four band names, each a
// permutation of the inputs, and the naming convention is stable.
func TestExpandCartesianProduct(t *testing.T) {
	sel := Selector{
		"a": List(1.0, 2.0),
		"b": List("x", "y"),
	}
	bands := Expand(sel)
	if len(bands) != 4 {
		t.Fatalf("len(bands) = %d, want 4", len(bands))
	}
	names := bandNames(bands)
	want := []string{"a_1_x", "a_1_y", "a_2_x", "a_2_y"}
	if !equalStrSlices(names, want) {
		t.Fatalf("band names = %v, want %v", names, want)
	}

	// Stability: running Expand again produces identical names in the same order.
	again := bandNames(Expand(sel))
	if !equalStrSlices(names, again) {
		t.Fatalf("Expand is not stable across runs: %v vs %v", names, again)
	}
}

func TestExpandMergesScalarsIntoEveryBand(t *testing.T) {
	sel := Selector{
		"time":  List(2020.0, 2021.0),
		"level": Scalar(500.0),
	}
	bands := Expand(sel)
	for _, b := range bands {
		if _, ok := b.Fixed["level"]; !ok {
			t.Errorf("band %q missing merged scalar dim 'level'", b.Name)
		}
		if _, ok := b.Fixed["time"]; !ok {
			t.Errorf("band %q missing its own list dim 'time'", b.Name)
		}
	}
	// Scalar dim must not appear in the band name.
	for _, b := range bands {
		if b.Name != "time_2020" && b.Name != "time_2021" {
			t.Errorf("unexpected band name %q (scalar dim leaked into name)", b.Name)
		}
	}
}

func TestChunkSetSpatialUsesTileCoords(t *testing.T) {
	axes := Axes{
		Dims:     []string{"y", "x"},
		Shape:    map[string]int{"y": 256, "x": 256},
		Chunks:   map[string]int{"y": 256, "x": 256},
		SpatialX: "x",
		SpatialY: "y",
	}
	tuples, err := ChunkSet(Selector{}, axes, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0][0] != 7 || tuples[0][1] != 3 {
		t.Fatalf("tuples = %v, want [[7 3]]", tuples)
	}
}

func TestChunkSetUnconstrainedCoversEveryChunk(t *testing.T) {
	axes := Axes{
		Dims:     []string{"x", "y", "time"},
		Shape:    map[string]int{"x": 256, "y": 256, "time": 10},
		Chunks:   map[string]int{"x": 256, "y": 256, "time": 4},
		SpatialX: "x",
		SpatialY: "y",
	}
	tuples, err := ChunkSet(Selector{}, axes, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	// time has 10 coords / chunk size 4 -> 3 chunks (0,1,2); x,y fixed to tile.
	if len(tuples) != 3 {
		t.Fatalf("len(tuples) = %d, want 3", len(tuples))
	}
}

func TestChunkSetListSelectorOneChunkPerValue(t *testing.T) {
	axes := Axes{
		Dims:     []string{"x", "y", "time"},
		Shape:    map[string]int{"x": 256, "y": 256, "time": 4},
		Chunks:   map[string]int{"x": 256, "y": 256, "time": 1},
		Coords:   map[string][]Coord{"time": {2020.0, 2021.0, 2022.0, 2023.0}},
		SpatialX: "x",
		SpatialY: "y",
	}
	sel := Selector{"time": List(2020.0, 2022.0)}
	tuples, err := ChunkSet(sel, axes, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 2 {
		t.Fatalf("len(tuples) = %d, want 2", len(tuples))
	}
}

func bandNames(bands []Band) []string {
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = b.Name
	}
	return names
}

func equalStrSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
