package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/shared/testutil"
	"vaxcli/internal/vaccination"
)

type recordingObserver struct {
	mu      sync.Mutex
	reports []StageReport
	errs    []error
}

func (o *recordingObserver) ObserveStage(_ context.Context, report StageReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, report)
	o.errs = append(o.errs, err)
}

func passthrough(_ context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
	return records, nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(NewStage("a", "A", passthrough)))
	require.NoError(t, r.Register(NewStage("b", "B", passthrough)))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(NewStage("", "empty", passthrough)))
	assert.Error(t, r.Register(NewStage("a", "again", passthrough)))

	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("b"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.ListIDs())

	s, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", s.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestNewDefaultRegistry(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			opts: DefaultOptions(),
			want: []string{StageIDDeaggregate, StageIDSuppress, StageIDForecast, StageIDDoseLag, StageIDDoseWait},
		},
		{
			name: "incremental input and output",
			opts: Options{InputCumulative: false, OutputCumulative: false, Forecast: true, DoseTiming: true},
			want: []string{StageIDDeaggregate, StageIDSuppress, StageIDCumulative, StageIDForecast, StageIDDoseLag, StageIDDoseWait, StageIDNonCumulative},
		},
		{
			name: "reconciliation only",
			opts: Options{InputCumulative: true, OutputCumulative: true},
			want: []string{StageIDDeaggregate, StageIDSuppress},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewDefaultRegistry(e, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ListIDs())
		})
	}
}

func fixture() []vaccination.Vaccinated {
	return []vaccination.Vaccinated{
		daily(day(3, 1), vaccination.NewSlice("dose_1", "A", "all"), 100),
		daily(day(3, 7), vaccination.NewSlice("dose_1", "A", "all"), 130),
		daily(day(3, 7), vaccination.NewSlice("dose_2", "A", "all"), 50),
		daily(day(3, 7), vaccination.NewSlice("all", "A", "all"), 180),
	}
}

func TestRunner_Run(t *testing.T) {
	e := newTestEngine(t)
	registry, err := NewDefaultRegistry(e, DefaultOptions())
	require.NoError(t, err)

	observer := &recordingObserver{}
	runner := NewRunner(registry, nil, observer)

	ctx := ContextWithRunID(context.Background(), "run-1")
	result, err := runner.Run(ctx, fixture())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.False(t, result.GeneratedAt.IsZero())

	// 3 kept observations, 51 forecast points for dose 1, one waited dose 2
	assert.Len(t, result.Records, 3+DefaultForecastWeeks+1)
	assert.Equal(t, vaccination.SortCanonical(result.Records), result.Records)

	var waited, predicted int
	for _, v := range result.Records {
		assert.False(t, v.Slice.Dose.IsAll(), "aggregates are suppressed")
		if v.Slice.Dose == vaccination.Dose2PlusWait {
			waited++
			assert.Equal(t, day(3, 14), v.Source.RealDate)
			assert.True(t, v.Extrapolated)
		}
		if v.Source.Origin == vaccination.OriginPrediction {
			predicted++
		}
	}
	assert.Equal(t, 1, waited)
	assert.Equal(t, DefaultForecastWeeks, predicted)

	require.Len(t, result.Stages, 5)
	assert.Equal(t, StageIDDeaggregate, result.Stages[0].ID)
	assert.Equal(t, 4, result.Stages[0].RecordsIn)
	assert.Equal(t, 3, result.Stages[1].RecordsOut)

	assert.Len(t, observer.reports, 5)
	for _, err := range observer.errs {
		assert.NoError(t, err)
	}

	var forecastSkips int
	for _, d := range result.Diagnostics {
		if d.Kind == DiagForecastSkipped {
			forecastSkips++
		}
	}
	assert.Equal(t, 1, forecastSkips, "dose 2 has a single point in the window")
}

func TestRunner_GeneratesRunID(t *testing.T) {
	e := newTestEngine(t)
	registry, err := NewDefaultRegistry(e, DefaultOptions())
	require.NoError(t, err)

	result, err := NewRunner(registry, nil, nil).Run(context.Background(), fixture())
	require.NoError(t, err)
	assert.Len(t, result.RunID, 36)
}

func TestRunner_EmptyInput(t *testing.T) {
	registry := NewRegistry()
	_, err := NewRunner(registry, nil, nil).Run(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyDataset)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
}

func TestRunner_ConsistencyAbortsRun(t *testing.T) {
	e := newTestEngine(t)
	registry, err := NewDefaultRegistry(e, DefaultOptions())
	require.NoError(t, err)

	observer := &recordingObserver{}
	input := []vaccination.Vaccinated{
		daily(day(3, 7), vaccination.NewSlice("dose_1", "all", "north"), 100000),
		daily(day(3, 7), vaccination.NewSlice("dose_1", "A", "north"), 50000),
		daily(day(3, 7), vaccination.NewSlice("dose_1", "B", "north"), 40000),
	}

	result, err := NewRunner(registry, nil, observer).Run(context.Background(), input)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "stage deaggregate:")

	var consistency *ConsistencyError
	assert.ErrorAs(t, err, &consistency)
	assert.ErrorIs(t, err, apperrors.ErrConsistency)

	require.Len(t, observer.reports, 1, "later stages never run")
	assert.Error(t, observer.errs[0])
}

func TestRunner_StageError(t *testing.T) {
	boom := errors.New("boom")
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewStage("first", "First", passthrough)))
	require.NoError(t, registry.Register(NewStage("broken", "Broken", func(context.Context, []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
		return nil, nil, boom
	})))

	logger, logs := testutil.NewTestLogger(t)
	_, err := NewRunner(registry, logger, nil).Run(ContextWithRunID(context.Background(), "run-1"), fixture())
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "stage broken: boom")

	testutil.AssertLogContains(t, logs, slog.LevelError, "pipeline run aborted")
	testutil.AssertLogAttr(t, logs, "stage", "broken")
	testutil.AssertLogAttr(t, logs, "run_id", "run-1")
}

func TestRunner_ReportsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewStage("noop", "Noop", passthrough)))

	s := vaccination.NewSlice("dose_1", "A", "all")
	input := []vaccination.Vaccinated{
		daily(day(3, 1), s, 1),
		daily(day(3, 1), s, 2),
	}

	logger, logs := testutil.NewTestLogger(t)
	result, err := NewRunner(registry, logger, nil).Run(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, result.Duplicates, 1)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "duplicate observations")
	testutil.AssertLogAttr(t, logs, "duplicates", int64(1))
	assert.Equal(t, s, result.Duplicates[0].Slice)
	assert.Len(t, result.Records, 2, "duplicates are kept")
}
