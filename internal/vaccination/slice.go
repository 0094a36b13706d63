package vaccination

import (
	"cmp"
	"fmt"
	"strings"
)

// AllValue is the textual form of the wildcard member on every boundary
const AllValue = "all"

// Dimension names one axis of a Slice
type Dimension int

const (
	// DimDose is the dose number axis
	DimDose Dimension = iota
	// DimGroup is the population group axis
	DimGroup
	// DimLocation is the location axis
	DimLocation
)

// Dimensions lists every slice dimension in deaggregation order
var Dimensions = [...]Dimension{DimDose, DimGroup, DimLocation}

// String returns the column name of the dimension
func (d Dimension) String() string {
	switch d {
	case DimDose:
		return "dose"
	case DimGroup:
		return "group"
	case DimLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Others returns the two dimensions other than d
func (d Dimension) Others() [2]Dimension {
	var others [2]Dimension
	i := 0
	for _, o := range Dimensions {
		if o != d {
			others[i] = o
			i++
		}
	}
	return others
}

// Member is a value on one dimension: either a concrete value or the
// wildcard meaning "aggregated across this dimension".
type Member struct {
	value string
	all   bool
}

// Of returns the concrete member v
func Of(v string) Member {
	return Member{value: v}
}

// All returns the wildcard member
func All() Member {
	return Member{all: true}
}

// ParseMember maps "all" or an empty string to the wildcard and anything
// else to a concrete member.
func ParseMember(s string) Member {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllValue) {
		return All()
	}
	return Of(s)
}

// IsAll reports whether m is the wildcard
func (m Member) IsAll() bool {
	return m.all
}

// Value returns the concrete value, or "" for the wildcard
func (m Member) Value() string {
	return m.value
}

// String returns the boundary form of m
func (m Member) String() string {
	if m.all {
		return AllValue
	}
	return m.value
}

// MarshalText encodes m in its boundary form
func (m Member) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes the boundary form produced by MarshalText
func (m *Member) UnmarshalText(text []byte) error {
	*m = ParseMember(string(text))
	return nil
}

// Compare orders concrete members by value with the wildcard last
func (m Member) Compare(o Member) int {
	switch {
	case m.all && o.all:
		return 0
	case m.all:
		return 1
	case o.all:
		return -1
	}
	return cmp.Compare(m.value, o.value)
}

// Dose vocabulary
var (
	DoseAll       = All()
	Dose1         = Of("dose_1")
	Dose2         = Of("dose_2")
	Dose2PlusWait = Of("dose_2_plus_wait") // 7+ days after dose 2
)

// KnownDose reports whether m belongs to the dose vocabulary
func KnownDose(m Member) bool {
	switch m {
	case DoseAll, Dose1, Dose2, Dose2PlusWait:
		return true
	}
	return false
}

// Slice is the dimensional key of an observation. It is comparable and may
// be used as a map key.
type Slice struct {
	Dose     Member `json:"dose"`
	Group    Member `json:"group"`
	Location Member `json:"location"`
}

// NewSlice builds a slice from boundary strings
func NewSlice(dose, group, location string) Slice {
	return Slice{
		Dose:     ParseMember(dose),
		Group:    ParseMember(group),
		Location: ParseMember(location),
	}
}

// Get returns the member on dimension d
func (s Slice) Get(d Dimension) Member {
	switch d {
	case DimDose:
		return s.Dose
	case DimGroup:
		return s.Group
	case DimLocation:
		return s.Location
	default:
		panic(fmt.Sprintf("vaccination: unknown dimension %d", d))
	}
}

// With returns a copy of s with dimension d set to m
func (s Slice) With(d Dimension, m Member) Slice {
	switch d {
	case DimDose:
		s.Dose = m
	case DimGroup:
		s.Group = m
	case DimLocation:
		s.Location = m
	default:
		panic(fmt.Sprintf("vaccination: unknown dimension %d", d))
	}
	return s
}

// Compare orders slices by (dose, group, location)
func (s Slice) Compare(o Slice) int {
	for _, d := range Dimensions {
		if c := s.Get(d).Compare(o.Get(d)); c != 0 {
			return c
		}
	}
	return 0
}

// String renders the slice as dose/group/location
func (s Slice) String() string {
	return s.Dose.String() + "/" + s.Group.String() + "/" + s.Location.String()
}
