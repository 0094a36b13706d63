package pipeline

import (
	"math"
	"time"

	"vaxcli/internal/vaccination"
)

type doseLagKey struct {
	realDate time.Time
	location vaccination.Member
	group    vaccination.Member
}

// AddDoseLag raises every dose-2 count to at least the dose-1 count reported
// one dose lag earlier for the same location and group. Adjusted
// observations are flagged extrapolated, including those whose count was
// already at or above the floor. Dose-2 observations without a dose-1
// counterpart pass through unchanged.
func (e *Engine) AddDoseLag(records []vaccination.Vaccinated) []vaccination.Vaccinated {
	dose1 := make(map[doseLagKey]float64)
	for _, v := range records {
		if v.Slice.Dose == vaccination.Dose1 {
			dose1[doseLagKey{vaccination.Truncate(v.Source.RealDate), v.Slice.Location, v.Slice.Group}] = v.Count
		}
	}

	lag := days(e.params.DoseLag)
	out := make([]vaccination.Vaccinated, 0, len(records))
	for _, v := range records {
		if v.Slice.Dose != vaccination.Dose2 {
			out = append(out, v)
			continue
		}

		key := doseLagKey{vaccination.Truncate(v.Source.RealDate).AddDate(0, 0, -lag), v.Slice.Location, v.Slice.Group}
		floor, ok := dose1[key]
		if !ok {
			out = append(out, v)
			continue
		}
		out = append(out, v.WithCount(math.Max(v.Count, floor)).WithExtrapolated(true))
	}
	return out
}

// AddDose2Wait appends a dose_2_plus_wait copy of every dose-2 observation,
// published one wait period later. A copy is flagged extrapolated when its
// shifted date lies beyond the latest non-extrapolated observation.
func (e *Engine) AddDose2Wait(records []vaccination.Vaccinated) []vaccination.Vaccinated {
	maxDate, ok := vaccination.MaxObservedDate(records)

	wait := days(e.params.WaitPeriod)
	var waited []vaccination.Vaccinated
	for _, v := range records {
		if v.Slice.Dose != vaccination.Dose2 {
			continue
		}

		src := v.Source
		src.RealDate = src.RealDate.AddDate(0, 0, wait)
		waited = append(waited, v.
			WithSlice(v.Slice.With(vaccination.DimDose, vaccination.Dose2PlusWait)).
			WithSource(src).
			WithExtrapolated(!ok || src.RealDate.After(maxDate)))
	}

	out := make([]vaccination.Vaccinated, 0, len(records)+len(waited))
	out = append(out, records...)
	return append(out, waited...)
}
