package ndarray

import "testing"

func TestNewValidatesDataLength(t *testing.T) {
	if _, err := New([]string{"y", "x"}, []int{2, 2}, DTypeF4, []float64{1, 2, 3}); err == nil {
		t.Fatal("New with mismatched data length returned nil error")
	}
}

func TestNewValidatesDimsLength(t *testing.T) {
	if _, err := New([]string{"y"}, []int{2, 2}, DTypeF4, []float64{1, 2, 3, 4}); err == nil {
		t.Fatal("New with mismatched dims length returned nil error")
	}
}

func TestAt(t *testing.T) {
	a, err := New([]string{"y", "x"}, []int{2, 3}, DTypeF4, []float64{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	v, err := a.At(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("At(1,2) = %v, want 5", v)
	}
	if _, err := a.At(5, 0); err == nil {
		t.Fatal("At with out-of-range index returned nil error")
	}
}

func TestBytes(t *testing.T) {
	a, _ := New([]string{"x"}, []int{4}, DTypeF4, []float64{0, 0, 0, 0})
	if a.Bytes() != 32 {
		t.Errorf("Bytes() = %d, want 32", a.Bytes())
	}
}

func TestSliceFixesOneDimension(t *testing.T) {
	a, err := New([]string{"time", "y", "x"}, []int{2, 2, 2}, DTypeF4,
		[]float64{0, 1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatal(err)
	}
	s, err := a.Slice(map[string]int{"time": 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Rank() != 2 {
		t.Fatalf("Slice Rank() = %d, want 2", s.Rank())
	}
	want := []float64{4, 5, 6, 7}
	for i, v := range want {
		if s.Data[i] != v {
			t.Errorf("Data[%d] = %v, want %v", i, s.Data[i], v)
		}
	}
}

func TestSliceRejectsUnknownDimension(t *testing.T) {
	a, _ := New([]string{"y", "x"}, []int{2, 2}, DTypeF4, []float64{0, 1, 2, 3})
	if _, err := a.Slice(map[string]int{"z": 0}); err == nil {
		t.Fatal("Slice with unknown dimension returned nil error")
	}
}

func TestSliceFullyFixedReturnsScalarArray(t *testing.T) {
	a, _ := New([]string{"y", "x"}, []int{2, 2}, DTypeF4, []float64{0, 1, 2, 3})
	s, err := a.Slice(map[string]int{"y": 1, "x": 0})
	if err != nil {
		t.Fatal(err)
	}
	if s.Rank() != 0 || len(s.Data) != 1 || s.Data[0] != 2 {
		t.Errorf("fully-fixed Slice = %+v, want single value 2", s)
	}
}
