// Package sorting orders catalog entries by id, name, total stats or a
// single stat channel. Ordering is stable in both directions.
package sorting

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// Source resolves the entry whose data is compared, typically a detail
// cache lookup that substitutes a hydrated version of a thin entry.
type Source func(catalog.Entry) catalog.Entry

// Identity returns the entry unchanged.
func Identity(e catalog.Entry) catalog.Entry { return e }

// Sort returns a new slice of entries ordered by spec. Ties keep their
// input order. A nil source compares entries as given.
func Sort(entries []catalog.Entry, spec catalog.SortSpec, source Source) []catalog.Entry {
	if source == nil {
		source = Identity
	}
	out := slices.Clone(entries)

	sign := 1
	if spec.Direction == catalog.Descending {
		sign = -1
	}

	slices.SortStableFunc(out, func(a, b catalog.Entry) int {
		return sign * Compare(source(a), source(b), spec.Field)
	})
	return out
}

// Compare orders two entries by field. Unknown fields fall back to id.
func Compare(a, b catalog.Entry, field catalog.SortField) int {
	switch field {
	case catalog.SortByName:
		return strings.Compare(a.Name, b.Name)
	case catalog.SortByTotalStats:
		return cmp.Compare(a.TotalStats(), b.TotalStats())
	case catalog.SortByHP, catalog.SortByAttack, catalog.SortByDefense,
		catalog.SortBySpecialAttack, catalog.SortBySpecialDefense, catalog.SortBySpeed:
		return cmp.Compare(a.Stat(string(field)), b.Stat(string(field)))
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}
