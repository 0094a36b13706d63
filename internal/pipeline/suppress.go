package pipeline

import (
	"vaxcli/internal/vaccination"
)

// RemoveAggregates narrows records to the observations kept for reporting.
// It drops wildcard-group and wildcard-dose aggregates, every concrete
// location (deaggregated location data is not yet trusted downstream), and
// weekly figures published on or after the first day of daily reporting.
// It never creates observations and is idempotent.
func (e *Engine) RemoveAggregates(records []vaccination.Vaccinated) []vaccination.Vaccinated {
	kept := make([]vaccination.Vaccinated, 0, len(records))
	for _, v := range records {
		if e.suppressed(v) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func (e *Engine) suppressed(v vaccination.Vaccinated) bool {
	if v.Slice.Group.IsAll() || v.Slice.Dose.IsAll() {
		return true
	}
	// TODO: keep concrete locations once deaggregated location data has been
	// validated against the regional weekly reports.
	if !v.Slice.Location.IsAll() {
		return true
	}
	return v.IsWeekly() && !v.Source.RealDate.Before(e.params.FirstDailyData)
}
