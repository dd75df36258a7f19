package catalog

import "fmt"

// SortField names an orderable attribute.
type SortField string

// Sort fields.
const (
	SortByID             SortField = "id"
	SortByName           SortField = "name"
	SortByTotalStats     SortField = "total-stats"
	SortByHP             SortField = StatHP
	SortByAttack         SortField = StatAttack
	SortByDefense        SortField = StatDefense
	SortBySpecialAttack  SortField = StatSpecialAttack
	SortBySpecialDefense SortField = StatSpecialDefense
	SortBySpeed          SortField = StatSpeed
)

// Direction is the sort direction.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec selects a field and direction.
type SortSpec struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by id ascending.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortByID, Direction: Ascending}
}

// IsDefault reports whether the spec is id ascending.
func (s SortSpec) IsDefault() bool {
	return (s.Field == SortByID || s.Field == "") && (s.Direction == Ascending || s.Direction == "")
}

// RequiresStats reports whether ordering by this field needs stat data.
func (s SortSpec) RequiresStats() bool {
	switch s.Field {
	case SortByTotalStats, SortByHP, SortByAttack, SortByDefense,
		SortBySpecialAttack, SortBySpecialDefense, SortBySpeed:
		return true
	default:
		return false
	}
}

func (s SortSpec) String() string {
	return fmt.Sprintf("%s:%s", s.Field, s.Direction)
}

// ParseSortField maps user input to a SortField. "stats" is accepted as an
// alias for total-stats.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "", SortByID:
		return SortByID, nil
	case "stats", SortByTotalStats:
		return SortByTotalStats, nil
	case SortByName, SortByHP, SortByAttack, SortByDefense,
		SortBySpecialAttack, SortBySpecialDefense, SortBySpeed:
		return SortField(s), nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseDirection maps user input to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}
