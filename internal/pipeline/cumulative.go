package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"vaxcli/internal/vaccination"
)

// MakeNonCumulative converts running totals into per-step increments. Within
// each slice, observations are ordered with vaccination.CompareSeries; the
// first keeps its count and each later one becomes the difference to its
// predecessor. Negative increments are passed through unchanged and reported
// as diagnostics.
func (e *Engine) MakeNonCumulative(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic) {
	keys, groups := vaccination.GroupBySlice(records)

	out := make([]vaccination.Vaccinated, 0, len(records))
	var diagnostics []Diagnostic
	for _, s := range keys {
		series := groups[s]
		out = append(out, series[0])
		for i := 1; i < len(series); i++ {
			diff := series[i].Count - series[i-1].Count
			if diff < 0 {
				diagnostics = append(diagnostics, e.warn(ctx, Diagnostic{
					Kind:    DiagNegativeDifference,
					Slice:   s.String(),
					Date:    series[i].Source.RealDate.Format(vaccination.DateLayout),
					Message: fmt.Sprintf("cumulative count decreased from %g to %g", series[i-1].Count, series[i].Count),
				}))
			}
			out = append(out, series[i].WithCount(diff))
		}
	}

	e.logger.DebugContext(ctx, "converted to non-cumulative",
		slog.Int("slices", len(keys)),
		slog.Int("negative_differences", len(diagnostics)),
	)
	return out, diagnostics
}

// MakeCumulative converts per-step increments into running totals per slice,
// ordered with vaccination.CompareSeries. It inverts MakeNonCumulative
// exactly for integer counts below 2^53; decimal counts can differ in the
// last bit.
func (e *Engine) MakeCumulative(records []vaccination.Vaccinated) []vaccination.Vaccinated {
	keys, groups := vaccination.GroupBySlice(records)

	out := make([]vaccination.Vaccinated, 0, len(records))
	for _, s := range keys {
		var total float64
		for _, v := range groups[s] {
			total += v.Count
			out = append(out, v.WithCount(total))
		}
	}
	return out
}
