package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// params are the filter inputs shared by the browse flags and the HTTP
// query string.
type params struct {
	Generation string   `form:"generation"`
	Types      []string `form:"types"`
	Legendary  bool     `form:"legendary"`
	Mythical   bool     `form:"mythical"`
	Search     string   `form:"search"`
	Sort       string   `form:"sort"`
	Direction  string   `form:"dir"`
	HeightMin  float64  `form:"height_min"`
	HeightMax  float64  `form:"height_max"`
	WeightMin  float64  `form:"weight_min"`
	WeightMax  float64  `form:"weight_max"`
}

// criteria converts params into filter criteria. Types may be repeated or
// comma separated; a zero maximum selects the default bound.
func (p params) criteria() (catalog.FilterCriteria, error) {
	field, err := catalog.ParseSortField(p.Sort)
	if err != nil {
		return catalog.FilterCriteria{}, err
	}
	dir, err := catalog.ParseDirection(p.Direction)
	if err != nil {
		return catalog.FilterCriteria{}, err
	}

	var types []string
	for _, t := range p.Types {
		types = append(types, strings.Split(t, ",")...)
	}

	c := catalog.FilterCriteria{
		Types:       types,
		Generation:  p.Generation,
		HeightRange: rangeOf(p.HeightMin, p.HeightMax, catalog.DefaultHeightMax),
		WeightRange: rangeOf(p.WeightMin, p.WeightMax, catalog.DefaultWeightMax),
		Legendary:   p.Legendary,
		Mythical:    p.Mythical,
		SearchTerm:  p.Search,
		Sort:        catalog.SortSpec{Field: field, Direction: dir},
	}.Normalize()

	if !c.IsAllGenerations() {
		if _, err := catalog.GenerationRange(c.Generation); err != nil {
			return catalog.FilterCriteria{}, err
		}
	}
	if c.HeightRange.Min > c.HeightRange.Max || c.WeightRange.Min > c.WeightRange.Max {
		return catalog.FilterCriteria{}, fmt.Errorf("range minimum exceeds maximum")
	}
	return c, nil
}

func rangeOf(lo, hi, defaultMax float64) catalog.Range {
	if hi <= 0 {
		hi = defaultMax
	}
	return catalog.Range{Min: lo, Max: hi}
}
