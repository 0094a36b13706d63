package vaccination

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on every input and output boundary
const DateLayout = "2006-01-02"

// Origin identifies where an observation came from
type Origin string

const (
	// OriginReport is a figure published by an upstream source
	OriginReport Origin = "report"
	// OriginPrediction is a figure synthesized by forecasting
	OriginPrediction Origin = "prediction"
)

// Period is the reporting granularity of an observation
type Period string

const (
	// PeriodDaily marks a figure reported every day
	PeriodDaily Period = "daily"
	// PeriodWeekly marks a figure reported once per week
	PeriodWeekly Period = "weekly"
)

// rank orders periods so daily sorts before weekly
func (p Period) rank() int {
	switch p {
	case PeriodDaily:
		return 0
	case PeriodWeekly:
		return 1
	default:
		return 2
	}
}

// Source is the provenance of one observation
type Source struct {
	Origin   Origin    `json:"origin"`
	DataDate time.Time `json:"data_date"` // Date the figure describes
	RealDate time.Time `json:"real_date"` // Date the figure was published
	Period   Period    `json:"period"`
}

// Day returns the UTC calendar day for the given year, month and day
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate normalizes t to its UTC calendar day
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Day(y, m, d)
}

// DaysBetween returns the number of whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Vaccinated is one observation of a vaccination count for a slice.
// Values are never mutated; the With* helpers return modified copies.
type Vaccinated struct {
	Source       Source  `json:"source"`
	Count        float64 `json:"vaccinated"`
	Slice        Slice   `json:"slice"`
	Extrapolated bool    `json:"extrapolated"`
	Interpolated bool    `json:"interpolated"`
}

// WithCount returns a copy of v with a different count
func (v Vaccinated) WithCount(count float64) Vaccinated {
	v.Count = count
	return v
}

// WithSlice returns a copy of v with a different slice
func (v Vaccinated) WithSlice(s Slice) Vaccinated {
	v.Slice = s
	return v
}

// WithSource returns a copy of v with a different source
func (v Vaccinated) WithSource(src Source) Vaccinated {
	v.Source = src
	return v
}

// WithExtrapolated returns a copy of v with the extrapolated flag set to flag
func (v Vaccinated) WithExtrapolated(flag bool) Vaccinated {
	v.Extrapolated = flag
	return v
}

// IsDaily reports whether the observation has daily granularity
func (v Vaccinated) IsDaily() bool {
	return v.Source.Period == PeriodDaily
}

// IsWeekly reports whether the observation has weekly granularity
func (v Vaccinated) IsWeekly() bool {
	return v.Source.Period == PeriodWeekly
}

// Key identifies an observation within a dataset
type Key struct {
	RealDate time.Time
	Period   Period
	Slice    Slice
}

// Key returns the dataset identity of v
func (v Vaccinated) Key() Key {
	return Key{RealDate: Truncate(v.Source.RealDate), Period: v.Source.Period, Slice: v.Slice}
}

// String renders the observation for diagnostics
func (v Vaccinated) String() string {
	return fmt.Sprintf("%s %s %s=%g", v.Slice, v.Source.RealDate.Format(DateLayout), v.Source.Period, v.Count)
}
