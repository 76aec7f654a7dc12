// Package selector implements the band/selector algebra (spec.md §4.4): it
// expands a selector into bands via a Cartesian product over list-valued
// dimensions, and determines which chunks each dimension needs.
package selector

import (
	"fmt"
	"sort"
	"strconv"
)

// Coord is a single coordinate value along a non-spatial axis: either a
// number or a string label.
type Coord any

// Value is one selector entry: either a fixed Scalar or an ordered List of
// values, each of which contributes one band.
type Value struct {
	list  bool
	items []Coord
}

// Scalar creates a fixed selector value.
func Scalar(v Coord) Value { return Value{items: []Coord{v}} }

// List creates a list-valued selector entry; one band is produced per value.
func List(vs ...Coord) Value { return Value{list: true, items: vs} }

// IsList reports whether this entry is list-valued.
func (v Value) IsList() bool { return v.list }

// Items returns the coordinate values (length 1 for a Scalar).
func (v Value) Items() []Coord { return v.items }

// Selector maps a non-spatial dimension name to its fixed or list value.
type Selector map[string]Value

// dimNames returns selector keys in a stable, sorted order so band names
// are deterministic across runs (spec.md testable
// property 7: "the implementation's naming convention is stable").
func (s Selector) dimNames() []string {
	names := make([]string, 0, len(s))
	for d := range s {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

// coordToken renders a single coordinate value as a band-name token: the
// value alone when it is already a string, otherwise "dim_value".
func coordToken(dim string, v Coord) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%s_%s", dim, formatNumber(v))
}

func formatNumber(v Coord) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprintf("%v", n)
	}
}
