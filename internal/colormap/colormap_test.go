package colormap

import "testing"

func TestNewRejectsTooFewStops(t *testing.T) {
	if _, err := New([]Stop{{Position: 0}}); err == nil {
		t.Fatal("New with 1 stop returned nil error")
	}
}

func TestNewRejectsUnsortedStops(t *testing.T) {
	stops := []Stop{{Position: 0}, {Position: 0.8}, {Position: 0.2}, {Position: 1}}
	if _, err := New(stops); err == nil {
		t.Fatal("New with unsorted stops returned nil error")
	}
}

func TestNewRejectsNonFullSpan(t *testing.T) {
	stops := []Stop{{Position: 0.1}, {Position: 1}}
	if _, err := New(stops); err == nil {
		t.Fatal("New not spanning [0,1] returned nil error")
	}
}

func TestTextureInterpolatesBetweenStops(t *testing.T) {
	cm, err := New([]Stop{
		{Position: 0, R: 0, G: 0, B: 0, A: 1},
		{Position: 1, R: 1, G: 1, B: 1, A: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	tex := cm.Texture(3)
	if len(tex) != 12 {
		t.Fatalf("len(tex) = %d, want 12", len(tex))
	}
	if tex[0] != 0 {
		t.Errorf("first pixel R = %v, want 0", tex[0])
	}
	last := tex[len(tex)-4]
	if last != 1 {
		t.Errorf("last pixel R = %v, want 1", last)
	}
	mid := tex[4]
	if mid < 0.4 || mid > 0.6 {
		t.Errorf("middle pixel R = %v, want ~0.5", mid)
	}
}
