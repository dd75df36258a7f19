package catalog

// ReferenceSets holds the static legendary and mythical id sets.
type ReferenceSets struct {
	Legendary map[int]struct{}
	Mythical  map[int]struct{}
}

// NewReferenceSets builds reference sets from id lists.
func NewReferenceSets(legendary, mythical []int) ReferenceSets {
	return ReferenceSets{
		Legendary: toSet(legendary),
		Mythical:  toSet(mythical),
	}
}

// DefaultReferenceSets returns the built-in legendary and mythical sets.
func DefaultReferenceSets() ReferenceSets {
	return NewReferenceSets(legendaryIDs, mythicalIDs)
}

// IsLegendary reports membership in the legendary set.
func (r ReferenceSets) IsLegendary(id int) bool {
	_, ok := r.Legendary[id]
	return ok
}

// IsMythical reports membership in the mythical set.
func (r ReferenceSets) IsMythical(id int) bool {
	_, ok := r.Mythical[id]
	return ok
}

// Match applies the legendary/mythical flags to an id. With both flags set
// the id must be in both sets; with one flag set it must be in that set;
// with neither flag every id matches.
func (r ReferenceSets) Match(id int, legendary, mythical bool) bool {
	switch {
	case legendary && mythical:
		return r.IsLegendary(id) && r.IsMythical(id)
	case legendary:
		return r.IsLegendary(id)
	case mythical:
		return r.IsMythical(id)
	default:
		return true
	}
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var legendaryIDs = []int{
	144, 145, 146, 150, 151,
	243, 244, 245, 249, 250, 251,
	377, 378, 379, 380, 381, 382, 383, 384, 385, 386,
	480, 481, 482, 483, 484, 485, 486, 487, 488, 489, 490, 491, 492, 493,
	638, 639, 640, 641, 642, 643, 644, 645, 646, 647, 648, 649,
	716, 717, 718, 719, 720, 721,
	772, 773, 774, 775, 776, 777, 778, 779, 780, 781, 782, 783, 784, 785, 786, 787,
	788, 789, 790, 791, 792, 793, 794, 795, 796, 797, 798, 799, 800, 801, 802, 807, 808,
	888, 889, 890, 891, 892, 893, 894, 895, 896, 897, 898,
	999, 1000, 1001, 1002, 1003, 1004, 1005, 1006, 1007, 1008, 1009, 1010, 1011, 1012,
	1013, 1014, 1015, 1016, 1017, 1018, 1019, 1020, 1021, 1022, 1023, 1024, 1025,
}

var mythicalIDs = []int{
	151,
	251,
	385,
	489, 490, 491, 492, 493,
	647, 648, 649,
	719, 720, 721,
	801, 802, 807, 808,
	890, 891, 892, 893, 894, 895, 896, 897, 898,
	1007, 1008, 1009, 1010, 1011, 1012, 1013, 1014, 1015, 1016, 1017, 1018, 1019,
	1020, 1021, 1022, 1023, 1024, 1025,
}
