package selector

import "strings"

// Band describes one band produced by Expand: its derived name and the
// per-dimension value fixings (list dims at their cartesian-product value,
// scalar dims merged in unchanged) needed to slice a chunk down to it.
type Band struct {
	Name  string
	Fixed map[string]Coord
}

// Expand implements getBandInformation (spec.md §4.4): list-valued entries
// are expanded into a Cartesian product of bands; scalar entries are merged
// into every band unchanged. Returns nil iff no dimension is list-valued —
// callers treat that as "one band named by the variable".
func Expand(sel Selector) []Band {
	var listDims []string
	scalars := map[string]Coord{}
	for _, d := range sel.dimNames() {
		v := sel[d]
		if v.IsList() {
			listDims = append(listDims, d)
		} else if len(v.Items()) > 0 {
			scalars[d] = v.Items()[0]
		}
	}
	if len(listDims) == 0 {
		return nil
	}

	bands := []Band{{Name: "", Fixed: map[string]Coord{}}}
	for _, dim := range listDims {
		values := sel[dim].Items()
		var next []Band
		for _, b := range bands {
			for _, v := range values {
				fixed := make(map[string]Coord, len(b.Fixed)+1)
				for k, fv := range b.Fixed {
					fixed[k] = fv
				}
				fixed[dim] = v
				name := b.Name
				token := coordToken(dim, v)
				if name == "" {
					name = token
				} else {
					name = name + "_" + token
				}
				next = append(next, Band{Name: name, Fixed: fixed})
			}
		}
		bands = next
	}

	for i := range bands {
		for k, v := range scalars {
			bands[i].Fixed[k] = v
		}
	}

	return bands
}

// VariableBandName is the single band name used when Expand returns nil
// (no list-valued dimension), named after the variable being rendered.
func VariableBandName(variable string) string {
	return strings.TrimSpace(variable)
}
