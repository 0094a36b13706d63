package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/vaccination"
)

// ConsistencyError reports an aggregate whose per-value peers do not add up
// to it within tolerance. It is fatal for the whole run.
type ConsistencyError struct {
	Dimension vaccination.Dimension
	Aggregate vaccination.Vaccinated
	PeerSum   float64
}

// Error implements the error interface
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("aggregate %s on %s: %g vs. peer sum %g",
		e.Aggregate.Slice, e.Dimension, e.Aggregate.Count, e.PeerSum)
}

// Unwrap classifies the error as a consistency violation
func (e *ConsistencyError) Unwrap() error {
	return apperrors.NewConsistencyError("deaggregation peer check failed", nil)
}

// AddDeaggregates breaks every daily observation that is a wildcard on one
// dimension into per-value observations. Each dimension is handled in its own
// pass. When per-value peers already exist they must reconstruct the
// aggregate within tolerance; otherwise the split is estimated from weekly
// ratios. The input is returned unchanged, followed by the new observations.
func (e *Engine) AddDeaggregates(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
	daily := make(map[time.Time][]vaccination.Vaccinated)
	var weekly []vaccination.Vaccinated
	for _, v := range records {
		switch v.Source.Period {
		case vaccination.PeriodDaily:
			day := vaccination.Truncate(v.Source.RealDate)
			daily[day] = append(daily[day], v)
		case vaccination.PeriodWeekly:
			weekly = append(weekly, v)
		}
	}

	dates := make([]time.Time, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, time.Time.Compare)

	var deaggregates []vaccination.Vaccinated
	var diagnostics []Diagnostic

	for _, dim := range vaccination.Dimensions {
		for _, day := range dates {
			onDate := daily[day]

			for _, aggregate := range onDate {
				if !aggregate.Slice.Get(dim).IsAll() {
					continue
				}

				peers := findPeers(onDate, aggregate, dim)
				if len(peers) > 0 {
					if err := e.checkPeers(aggregate, peers, dim); err != nil {
						return nil, diagnostics, err
					}
					continue
				}

				split, diag := e.interpolate(aggregate, dim, weekly)
				if diag != nil {
					diagnostics = append(diagnostics, e.warn(ctx, *diag))
					continue
				}
				deaggregates = append(deaggregates, split...)
			}
		}
	}

	e.logger.InfoContext(ctx, "deaggregation completed",
		slog.Int("input", len(records)),
		slog.Int("deaggregates", len(deaggregates)),
		slog.Int("skipped", len(diagnostics)),
	)

	out := make([]vaccination.Vaccinated, 0, len(records)+len(deaggregates))
	out = append(out, records...)
	return append(out, deaggregates...), diagnostics, nil
}

// findPeers returns observations that are concrete on dim and share the
// aggregate's concrete values on the other two dimensions
func findPeers(onDate []vaccination.Vaccinated, aggregate vaccination.Vaccinated, dim vaccination.Dimension) []vaccination.Vaccinated {
	var peers []vaccination.Vaccinated
	for _, v := range onDate {
		if v.Slice.Get(dim).IsAll() {
			continue
		}
		match := true
		for _, other := range dim.Others() {
			m := v.Slice.Get(other)
			if m.IsAll() || m != aggregate.Slice.Get(other) {
				match = false
				break
			}
		}
		if match {
			peers = append(peers, v)
		}
	}
	return peers
}

// checkPeers verifies that peers reconstruct the aggregate within tolerance
func (e *Engine) checkPeers(aggregate vaccination.Vaccinated, peers []vaccination.Vaccinated, dim vaccination.Dimension) error {
	var sum float64
	for _, p := range peers {
		sum += p.Count
	}

	difference := math.Abs(aggregate.Count - sum)
	if difference < e.params.AbsTolerance {
		return nil
	}
	if sum != 0 && difference/sum < e.params.RelTolerance {
		return nil
	}
	return &ConsistencyError{Dimension: dim, Aggregate: aggregate, PeerSum: sum}
}

// interpolate splits aggregate along dim using the per-value shares found in
// the two weekly reports closest to its real date. The share is linear in
// the aggregate's data date.
func (e *Engine) interpolate(aggregate vaccination.Vaccinated, dim vaccination.Dimension, weekly []vaccination.Vaccinated) ([]vaccination.Vaccinated, *Diagnostic) {
	others := dim.Others()

	var samples []vaccination.Vaccinated
	for _, v := range weekly {
		if v.Slice.Get(dim).IsAll() {
			continue
		}
		if v.Slice.Get(others[0]) != aggregate.Slice.Get(others[0]) ||
			v.Slice.Get(others[1]) != aggregate.Slice.Get(others[1]) {
			continue
		}
		samples = append(samples, v)
	}

	dates := distinctDates(samples)
	if len(dates) < 2 {
		return nil, &Diagnostic{
			Kind:  DiagInterpolationSkipped,
			Slice: aggregate.Slice.String(),
			Date:  aggregate.Source.RealDate.Format(vaccination.DateLayout),
			Message: fmt.Sprintf("failed to interpolate %s %s on %s with %d weekly samples",
				aggregate.Slice, aggregate.Source.RealDate.Format(vaccination.DateLayout), dim, len(dates)),
		}
	}

	// Closest two dates, earlier date first on equal distance.
	target := aggregate.Source.RealDate
	slices.SortStableFunc(dates, func(a, b time.Time) int {
		return absDays(a, target) - absDays(b, target)
	})
	date0, date1 := dates[0], dates[1]
	if date1.Before(date0) {
		date0, date1 = date1, date0
	}

	totals := map[time.Time]float64{}
	byValue := map[vaccination.Member]map[time.Time]float64{}
	var values []vaccination.Member
	for _, v := range samples {
		m := v.Slice.Get(dim)
		if _, ok := byValue[m]; !ok {
			byValue[m] = map[time.Time]float64{}
			values = append(values, m)
		}
		day := vaccination.Truncate(v.Source.RealDate)
		if day.Equal(date0) || day.Equal(date1) {
			byValue[m][day] += v.Count
			totals[day] += v.Count
		}
	}
	slices.SortFunc(values, vaccination.Member.Compare)

	if totals[date0] == 0 || totals[date1] == 0 {
		return nil, &Diagnostic{
			Kind:  DiagInterpolationSkipped,
			Slice: aggregate.Slice.String(),
			Date:  aggregate.Source.RealDate.Format(vaccination.DateLayout),
			Message: fmt.Sprintf("failed to interpolate %s %s on %s: zero weekly total",
				aggregate.Slice, aggregate.Source.RealDate.Format(vaccination.DateLayout), dim),
		}
	}

	span := float64(vaccination.DaysBetween(date0, date1))
	offset := float64(vaccination.DaysBetween(date0, aggregate.Source.DataDate))

	split := make([]vaccination.Vaccinated, 0, len(values))
	for _, m := range values {
		ratio0 := byValue[m][date0] / totals[date0]
		ratio1 := byValue[m][date1] / totals[date1]
		ratio := ratio0 + (ratio1-ratio0)/span*offset

		split = append(split, vaccination.Vaccinated{
			Source:       aggregate.Source,
			Count:        math.Trunc(aggregate.Count * ratio),
			Slice:        aggregate.Slice.With(dim, m),
			Interpolated: true,
		})
	}
	return split, nil
}

// distinctDates returns the distinct real dates of records in ascending order
func distinctDates(records []vaccination.Vaccinated) []time.Time {
	seen := map[time.Time]bool{}
	var dates []time.Time
	for _, v := range records {
		day := vaccination.Truncate(v.Source.RealDate)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	slices.SortFunc(dates, time.Time.Compare)
	return dates
}

func absDays(a, b time.Time) int {
	d := vaccination.DaysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}
