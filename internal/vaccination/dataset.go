package vaccination

import (
	"cmp"
	"slices"
	"time"
)

// MaxRealDate returns the latest real date across records.
// The boolean is false when records is empty.
func MaxRealDate(records []Vaccinated) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range records {
		if !found || v.Source.RealDate.After(latest) {
			latest = v.Source.RealDate
			found = true
		}
	}
	return latest, found
}

// MaxObservedDate returns the latest real date among records that are not
// extrapolated.
func MaxObservedDate(records []Vaccinated) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range records {
		if v.Extrapolated {
			continue
		}
		if !found || v.Source.RealDate.After(latest) {
			latest = v.Source.RealDate
			found = true
		}
	}
	return latest, found
}

// CompareSeries orders two observations of the same slice: real date, then
// period (daily first), then data date, then origin.
func CompareSeries(a, b Vaccinated) int {
	if c := a.Source.RealDate.Compare(b.Source.RealDate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Source.Period.rank(), b.Source.Period.rank()); c != 0 {
		return c
	}
	if c := a.Source.DataDate.Compare(b.Source.DataDate); c != 0 {
		return c
	}
	return cmp.Compare(a.Source.Origin, b.Source.Origin)
}

// CompareCanonical orders observations by slice and then by CompareSeries
func CompareCanonical(a, b Vaccinated) int {
	if c := a.Slice.Compare(b.Slice); c != 0 {
		return c
	}
	return CompareSeries(a, b)
}

// SortCanonical returns a sorted copy of records
func SortCanonical(records []Vaccinated) []Vaccinated {
	out := slices.Clone(records)
	slices.SortStableFunc(out, CompareCanonical)
	return out
}

// GroupBySlice partitions records by slice. Each group is sorted with
// CompareSeries and the slices are returned in canonical order.
func GroupBySlice(records []Vaccinated) ([]Slice, map[Slice][]Vaccinated) {
	groups := make(map[Slice][]Vaccinated)
	for _, v := range records {
		groups[v.Slice] = append(groups[v.Slice], v)
	}

	keys := make([]Slice, 0, len(groups))
	for s, vs := range groups {
		slices.SortStableFunc(vs, CompareSeries)
		keys = append(keys, s)
	}
	slices.SortFunc(keys, Slice.Compare)
	return keys, groups
}

// DistinctSlices returns every slice present in records in canonical order
func DistinctSlices(records []Vaccinated) []Slice {
	keys, _ := GroupBySlice(records)
	return keys
}

// Duplicates returns the keys that occur more than once in records
func Duplicates(records []Vaccinated) []Key {
	seen := make(map[Key]int, len(records))
	var dups []Key
	for _, v := range records {
		k := v.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}
