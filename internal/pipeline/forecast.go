package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"vaxcli/internal/vaccination"
)

// line is a least-squares fit count = Slope*x + Intercept
type line struct {
	Slope     float64
	Intercept float64
}

// fitLine fits a straight line through (xs[i], ys[i]). It fails when fewer
// than two points are given or all xs are equal.
func fitLine(xs, ys []float64) (line, bool) {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return line{}, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return line{}, false
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return line{Slope: slope, Intercept: (sumY - slope*sumX) / n}, true
}

// AddExtrapolations appends a weekly linear forecast for every slice. Each
// slice is fitted on its observations from the trailing forecast window that
// ends at the dataset's latest real date, with x measured in days relative
// to that date. Slices with fewer than two points in the window are skipped.
// Predictions are not clamped and may go negative.
func (e *Engine) AddExtrapolations(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic) {
	maxDate, ok := vaccination.MaxRealDate(records)
	if !ok {
		return records, nil
	}
	maxDate = vaccination.Truncate(maxDate)
	windowStart := maxDate.Add(-e.params.ForecastWindow)

	keys, groups := vaccination.GroupBySlice(records)

	var predictions []vaccination.Vaccinated
	var diagnostics []Diagnostic
	for _, s := range keys {
		var xs, ys []float64
		for _, v := range groups[s] {
			if !v.Source.RealDate.After(windowStart) {
				continue
			}
			xs = append(xs, float64(vaccination.DaysBetween(maxDate, v.Source.RealDate)))
			ys = append(ys, v.Count)
		}

		fit, ok := fitLine(xs, ys)
		if !ok {
			diagnostics = append(diagnostics, e.warn(ctx, Diagnostic{
				Kind:    DiagForecastSkipped,
				Slice:   s.String(),
				Date:    maxDate.Format(vaccination.DateLayout),
				Message: fmt.Sprintf("failed to forecast %s with %d points in window", s, len(xs)),
			}))
			continue
		}

		e.logger.DebugContext(ctx, "fitted forecast",
			slog.String("slice", s.String()),
			slog.Int("points", len(xs)),
			slog.Float64("slope", fit.Slope),
			slog.Float64("intercept", fit.Intercept),
		)

		for week := 1; week <= e.params.ForecastWeeks; week++ {
			realDate := maxDate.AddDate(0, 0, 7*week)
			predictions = append(predictions, vaccination.Vaccinated{
				Source: vaccination.Source{
					Origin:   vaccination.OriginPrediction,
					DataDate: realDate,
					RealDate: realDate,
					Period:   vaccination.PeriodDaily,
				},
				Count:        fit.Slope*float64(7*week) + fit.Intercept,
				Slice:        s,
				Extrapolated: true,
			})
		}
	}

	out := make([]vaccination.Vaccinated, 0, len(records)+len(predictions))
	out = append(out, records...)
	return append(out, predictions...), diagnostics
}
