// Package strategy decides which remote fetch path serves a set of filter
// criteria. Resolve is a pure function; executing the chosen strategy is
// the coordinator's job.
package strategy

import (
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// Kind identifies a fetch strategy.
type Kind string

// Strategies in priority order.
const (
	// SearchOverride serves external search results as-is.
	SearchOverride Kind = "search-override"

	// GenerationScoped fetches one generation, then post-filters by type.
	GenerationScoped Kind = "generation"

	// TypeIntersection fetches each selected type and keeps ids present in all of them.
	TypeIntersection Kind = "type-intersection"

	// LegendaryMythicalScoped fetches only ids from the reference sets.
	LegendaryMythicalScoped Kind = "legendary-mythical"

	// RangeOrSortScoped fetches the whole catalog in batches, then filters and sorts locally.
	RangeOrSortScoped Kind = "range-or-sort"

	// IncrementalAll delegates to the incremental page engine.
	IncrementalAll Kind = "incremental"
)

// Strategy is the resolved fetch plan together with the criteria fields it
// consumes.
type Strategy struct {
	Kind Kind

	// Generation is set for GenerationScoped.
	Generation string

	// Types are the AND-combined types for GenerationScoped and TypeIntersection.
	Types []string

	// Legendary and Mythical select reference sets. GenerationScoped also
	// applies them as a post-filter.
	Legendary bool
	Mythical  bool

	// Criteria is the normalized input, kept for post-filtering and sorting.
	Criteria catalog.FilterCriteria
}

// Eager reports whether the strategy fetches its full result set in one run.
func (s Strategy) Eager() bool {
	return s.Kind != IncrementalAll
}

// HasMore is the initial "more data available" flag the strategy implies.
func (s Strategy) HasMore() bool {
	return s.Kind == IncrementalAll
}

// Resolve picks the strategy for the criteria. The first matching rule wins:
// search results, generation, types, legendary/mythical, narrowed ranges or
// non-default sort, and finally incremental paging.
func Resolve(c catalog.FilterCriteria, hasSearchResults bool) Strategy {
	c = c.Normalize()
	s := Strategy{
		Types:     c.Types,
		Legendary: c.Legendary,
		Mythical:  c.Mythical,
		Criteria:  c,
	}

	switch {
	case hasSearchResults:
		s.Kind = SearchOverride
	case !c.IsAllGenerations():
		s.Kind = GenerationScoped
		s.Generation = c.Generation
	case len(c.Types) > 0:
		s.Kind = TypeIntersection
	case c.Legendary || c.Mythical:
		s.Kind = LegendaryMythicalScoped
	case c.RangesNarrowed() || !c.Sort.IsDefault():
		s.Kind = RangeOrSortScoped
	default:
		s.Kind = IncrementalAll
	}
	return s
}
