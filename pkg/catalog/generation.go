package catalog

import (
	"fmt"
	"strconv"
)

// IDRange is an inclusive id interval.
type IDRange struct {
	First int
	Last  int
}

// Len returns the number of ids in the range.
func (r IDRange) Len() int {
	return r.Last - r.First + 1
}

// IDs enumerates the range.
func (r IDRange) IDs() []int {
	ids := make([]int, 0, r.Len())
	for id := r.First; id <= r.Last; id++ {
		ids = append(ids, id)
	}
	return ids
}

var generationRanges = map[int]IDRange{
	1: {First: 1, Last: 151},
	2: {First: 152, Last: 251},
	3: {First: 252, Last: 386},
	4: {First: 387, Last: 493},
	5: {First: 494, Last: 649},
	6: {First: 650, Last: 721},
	7: {First: 722, Last: 809},
	8: {First: 810, Last: 905},
	9: {First: 906, Last: 1025},
}

// GenerationRange resolves a generation tag ("1".."9") to its id range.
func GenerationRange(tag string) (IDRange, error) {
	n, err := strconv.Atoi(tag)
	if err != nil {
		return IDRange{}, fmt.Errorf("%w: %q", ErrUnknownGeneration, tag)
	}
	r, ok := generationRanges[n]
	if !ok {
		return IDRange{}, fmt.Errorf("%w: %q", ErrUnknownGeneration, tag)
	}
	return r, nil
}
