package catalog

// Stat channel names as reported by the remote catalog.
const (
	StatHP             = "hp"
	StatAttack         = "attack"
	StatDefense        = "defense"
	StatSpecialAttack  = "special-attack"
	StatSpecialDefense = "special-defense"
	StatSpeed          = "speed"
)

// StatChannels lists the six stat channels in display order.
var StatChannels = []string{
	StatHP,
	StatAttack,
	StatDefense,
	StatSpecialAttack,
	StatSpecialDefense,
	StatSpeed,
}

// Stat is a single base stat value.
type Stat struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
}

// Entry is a catalog entry. An entry is thin until both Types and Stats
// are populated.
type Entry struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Types  []string `json:"types,omitempty"`
	Stats  []Stat   `json:"stats,omitempty"`
	Height int      `json:"height"` // decimetres
	Weight int      `json:"weight"` // hectograms
}

// ThinRef is the cheap id-discovery record returned by thin list calls.
type ThinRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// IsThin reports whether the entry is missing types or stats.
func (e Entry) IsThin() bool {
	return len(e.Types) == 0 || len(e.Stats) == 0
}

// HasTypes reports whether the entry carries at least one type.
func (e Entry) HasTypes() bool {
	return len(e.Types) > 0
}

// HasDetail reports whether height and weight were populated.
func (e Entry) HasDetail() bool {
	return e.Height > 0 && e.Weight > 0
}

// Stat returns the base value of the named stat channel, or 0 when absent.
func (e Entry) Stat(name string) int {
	for _, s := range e.Stats {
		if s.Name == name {
			return s.BaseStat
		}
	}
	return 0
}

// TotalStats sums the six stat channels.
func (e Entry) TotalStats() int {
	total := 0
	for _, name := range StatChannels {
		total += e.Stat(name)
	}
	return total
}

// HasType reports whether the entry belongs to the given type.
func (e Entry) HasType(tag string) bool {
	for _, t := range e.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// HeightMetres converts the API height to metres.
func (e Entry) HeightMetres() float64 {
	return float64(e.Height) / 10
}

// WeightKilograms converts the API weight to kilograms.
func (e Entry) WeightKilograms() float64 {
	return float64(e.Weight) / 10
}

// Thin returns a thin entry carrying only id and name.
func Thin(id int, name string) Entry {
	return Entry{ID: id, Name: name}
}

// IDs extracts the ids of the given entries, preserving order.
func IDs(entries []Entry) []int {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
