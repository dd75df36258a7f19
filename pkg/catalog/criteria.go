package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// GenerationAll selects every generation.
const GenerationAll = "all"

// Default filter bounds in metres and kilograms.
const (
	DefaultHeightMax = 20
	DefaultWeightMax = 1000
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FilterCriteria is the full set of user-selected filters. Sort is part of
// the criteria because it influences which fetch strategy is chosen.
type FilterCriteria struct {
	Types       []string `json:"types"`
	Generation  string   `json:"generation"`
	HeightRange Range    `json:"height_range"`
	WeightRange Range    `json:"weight_range"`
	Legendary   bool     `json:"legendary"`
	Mythical    bool     `json:"mythical"`
	SearchTerm  string   `json:"search_term"`
	Sort        SortSpec `json:"sort"`
}

// DefaultCriteria returns the "all generations, no extra filters" criteria.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		Generation:  GenerationAll,
		HeightRange: Range{Min: 0, Max: DefaultHeightMax},
		WeightRange: Range{Min: 0, Max: DefaultWeightMax},
		Sort:        DefaultSort(),
	}
}

// Normalize lower-cases and de-duplicates the selected types, keeping their
// first-seen order. Unset generation, ranges and sort take their defaults.
func (c FilterCriteria) Normalize() FilterCriteria {
	seen := make(map[string]struct{}, len(c.Types))
	types := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	c.Types = types
	if strings.TrimSpace(c.Generation) == "" {
		c.Generation = GenerationAll
	}
	if c.HeightRange == (Range{}) {
		c.HeightRange = Range{Min: 0, Max: DefaultHeightMax}
	}
	if c.WeightRange == (Range{}) {
		c.WeightRange = Range{Min: 0, Max: DefaultWeightMax}
	}
	if c.Sort.Field == "" {
		c.Sort.Field = SortByID
	}
	if c.Sort.Direction == "" {
		c.Sort.Direction = Ascending
	}
	return c
}

// IsAllGenerations reports whether no generation is selected.
func (c FilterCriteria) IsAllGenerations() bool {
	return c.Generation == "" || c.Generation == GenerationAll
}

// RangesNarrowed reports whether either range differs from its default.
func (c FilterCriteria) RangesNarrowed() bool {
	return c.HeightRange.Min > 0 || c.HeightRange.Max < DefaultHeightMax ||
		c.WeightRange.Min > 0 || c.WeightRange.Max < DefaultWeightMax
}

// IsIncremental reports whether the criteria select the only mode that
// uses incremental pagination: all generations and no extra filters.
func (c FilterCriteria) IsIncremental() bool {
	return c.IsAllGenerations() &&
		len(c.Types) == 0 &&
		!c.Legendary && !c.Mythical &&
		!c.RangesNarrowed() &&
		c.Sort.IsDefault()
}

// Key returns a canonical string identifying the criteria. Two criteria with
// the same key select the same data.
func (c FilterCriteria) Key() string {
	c = c.Normalize()
	types := append([]string(nil), c.Types...)
	sort.Strings(types)
	return fmt.Sprintf("gen=%s|types=%s|h=%g-%g|w=%g-%g|leg=%t|myth=%t|q=%s|sort=%s",
		c.Generation,
		strings.Join(types, ","),
		c.HeightRange.Min, c.HeightRange.Max,
		c.WeightRange.Min, c.WeightRange.Max,
		c.Legendary, c.Mythical,
		strings.ToLower(strings.TrimSpace(c.SearchTerm)),
		c.Sort,
	)
}

// MatchesAllTypes reports whether the entry's type set is a superset of the
// selected types.
func MatchesAllTypes(e Entry, types []string) bool {
	for _, t := range types {
		if !e.HasType(t) {
			return false
		}
	}
	return true
}

// InRanges reports whether the entry's height and weight fall within the
// criteria ranges.
func InRanges(e Entry, c FilterCriteria) bool {
	return c.HeightRange.Contains(e.HeightMetres()) && c.WeightRange.Contains(e.WeightKilograms())
}

// FilterRanges keeps entries within the criteria ranges. Entries without
// detail data report zero height and weight and are kept unfiltered.
func FilterRanges(entries []Entry, c FilterCriteria) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.HasDetail() || InRanges(e, c) {
			out = append(out, e)
		}
	}
	return out
}
