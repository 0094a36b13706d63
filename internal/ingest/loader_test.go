package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/vaccination"
)

const header = "origin,data_date,real_date,period,dose,group,location,vaccinated\n"

func newTestLoader(opts Options) *Loader {
	return NewLoader(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReadCSV(t *testing.T) {
	input := header +
		"report,2021-01-04,2021-01-04,daily,dose_1,80+,all,1000\n" +
		",2021-01-05,2021-01-04,Weekly,DOSE_2,all,north,250.5\n" +
		"report,2021-01-05,2021-01-05,daily,,,,\t42\n"

	records, err := newTestLoader(Options{}).ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, vaccination.OriginReport, first.Source.Origin)
	assert.Equal(t, vaccination.Day(2021, 1, 4), first.Source.RealDate)
	assert.Equal(t, vaccination.PeriodDaily, first.Source.Period)
	assert.Equal(t, vaccination.NewSlice("dose_1", "80+", "all"), first.Slice)
	assert.Equal(t, 1000.0, first.Count)
	assert.False(t, first.Extrapolated)

	second := records[1]
	assert.Equal(t, vaccination.OriginReport, second.Source.Origin, "origin defaults to report")
	assert.Equal(t, vaccination.Day(2021, 1, 5), second.Source.DataDate)
	assert.Equal(t, vaccination.PeriodWeekly, second.Source.Period)
	assert.Equal(t, vaccination.Dose2, second.Slice.Dose)
	assert.True(t, second.Slice.Group.IsAll())
	assert.Equal(t, 250.5, second.Count)

	third := records[2]
	assert.True(t, third.Slice.Dose.IsAll())
	assert.True(t, third.Slice.Group.IsAll())
	assert.True(t, third.Slice.Location.IsAll())
	assert.Equal(t, 42.0, third.Count)
}

func TestReadCSV_ColumnOrderAndBOM(t *testing.T) {
	input := "\ufeffvaccinated,period,real_date,data_date,location,group,dose,extrapolated\n" +
		"7,daily,2021-02-01,2021-02-01,all,A,dose_1,false\n"

	records, err := newTestLoader(Options{}).ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 7.0, records[0].Count)
	assert.Equal(t, vaccination.NewSlice("dose_1", "A", "all"), records[0].Slice)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		input   string
		wantMsg string
	}{
		{
			name:    "empty input",
			input:   "",
			wantMsg: "no header row",
		},
		{
			name:    "header only",
			input:   header,
			wantMsg: "no observations",
		},
		{
			name:    "missing column",
			input:   "data_date,real_date,period,dose,group,vaccinated\n",
			wantMsg: `missing column "location"`,
		},
		{
			name:    "prediction origin",
			input:   header + "prediction,2021-01-04,2021-01-04,daily,dose_1,A,all,1\n",
			wantMsg: "prediction rows are not accepted",
		},
		{
			name:    "bad date",
			input:   header + "report,04/01/2021,2021-01-04,daily,dose_1,A,all,1\n",
			wantMsg: "data_date",
		},
		{
			name:    "bad period",
			input:   header + "report,2021-01-04,2021-01-04,monthly,dose_1,A,all,1\n",
			wantMsg: "period",
		},
		{
			name:    "unknown dose",
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_3,A,all,1\n",
			wantMsg: "dose",
		},
		{
			name:    "derived dose on input",
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_2_plus_wait,A,all,1\n",
			wantMsg: "dose",
		},
		{
			name:    "non numeric count",
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_1,A,all,many\n",
			wantMsg: "not a number",
		},
		{
			name:    "negative count",
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_1,A,all,-5\n",
			wantMsg: "negative",
		},
		{
			name:    "unknown group",
			opts:    Options{Groups: []string{"80+", "70-79"}},
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_1,60-69,all,1\n",
			wantMsg: `unknown group "60-69"`,
		},
		{
			name:    "unknown location",
			opts:    Options{Locations: []string{"north"}},
			input:   header + "report,2021-01-04,2021-01-04,daily,dose_1,A,west,1\n",
			wantMsg: `unknown location "west"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(tt.opts).ReadCSV(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
		})
	}
}

func TestReadCSV_RowNumber(t *testing.T) {
	input := header +
		"report,2021-01-04,2021-01-04,daily,dose_1,A,all,1\n" +
		"prediction,2021-01-04,2021-01-04,daily,dose_1,A,all,1\n"

	_, err := newTestLoader(Options{}).ReadCSV(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.ErrorIs(t, err, ErrPredictionInput)
}

func TestReadCSV_VocabularyAcceptsWildcard(t *testing.T) {
	input := header + "report,2021-01-04,2021-01-04,daily,dose_1,all,all,1\n"

	records, err := newTestLoader(Options{Groups: []string{"80+"}, Locations: []string{"north"}}).
		ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader(Options{Sheet: "data"})

	csvPath := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(header+"report,2021-01-04,2021-01-04,daily,dose_1,A,all,10\n"), 0o644))

	xlsxPath := filepath.Join(dir, "input.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("data", "A1", &[]any{"data_date", "real_date", "period", "dose", "group", "location", "vaccinated"}))
	require.NoError(t, f.SetSheetRow("data", "A2", &[]any{"2021-01-04", "2021-01-04", "daily", "dose_1", "A", "all", 10}))
	require.NoError(t, f.SetSheetRow("data", "A3", &[]any{"2021-01-05", "2021-01-05", "weekly", "dose_2", "B", "", 25}))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	fromCSV, err := loader.Load(context.Background(), csvPath)
	require.NoError(t, err)
	require.Len(t, fromCSV, 1)

	fromXLSX, err := loader.Load(context.Background(), xlsxPath)
	require.NoError(t, err)
	require.Len(t, fromXLSX, 2)
	assert.Equal(t, fromCSV[0], fromXLSX[0])
	assert.Equal(t, vaccination.NewSlice("dose_2", "B", "all"), fromXLSX[1].Slice)
	assert.Equal(t, 25.0, fromXLSX[1].Count)

	_, err = loader.Load(context.Background(), filepath.Join(dir, "input.json"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = loader.Load(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))

	_, err = newTestLoader(Options{Sheet: "other"}).LoadXLSX(context.Background(), xlsxPath)
	assert.ErrorContains(t, err, `sheet "other" not found`)
}
