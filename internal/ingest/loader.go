package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/vaccination"
)

const utf8BOM = "\ufeff"

// Options restricts the accepted vocabulary. Empty lists accept any value.
type Options struct {
	Groups    []string
	Locations []string
	// Sheet is the XLSX worksheet to read; the first sheet when empty
	Sheet string
}

// Loader reads observation tables into records
type Loader struct {
	opts      Options
	groups    map[string]bool
	locations map[string]bool
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewLoader creates a loader
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		opts:      opts,
		groups:    vocabulary(opts.Groups),
		locations: vocabulary(opts.Locations),
		validate:  newRowValidator(),
		logger:    logger.With(slog.String("component", "ingest")),
	}
}

func vocabulary(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[strings.TrimSpace(v)] = true
	}
	return m
}

// Load reads path as CSV or XLSX depending on its extension
func (l *Loader) Load(ctx context.Context, path string) ([]vaccination.Vaccinated, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return l.LoadCSV(ctx, path)
	case ".xlsx":
		return l.LoadXLSX(ctx, path)
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported input format %q", filepath.Ext(path)))
	}
}

// LoadCSV reads a CSV file with a header row
func (l *Loader) LoadCSV(ctx context.Context, path string) ([]vaccination.Vaccinated, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	records, err := l.ReadCSV(ctx, file)
	if err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "loaded observations",
		slog.String("file", path),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// ReadCSV reads CSV data with a header row from r
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) ([]vaccination.Vaccinated, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	return l.decode(ctx, reader.Read)
}

// LoadXLSX reads the configured worksheet of an Excel workbook
func (l *Loader) LoadXLSX(ctx context.Context, path string) ([]vaccination.Vaccinated, error) {
	f, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	sheet := l.opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q not found in %s", sheet, path), nil)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	defer rows.Close()

	records, err := l.decode(ctx, func() ([]string, error) {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return rows.Columns()
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded observations",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// decode consumes a header row and then data rows from next until io.EOF
func (l *Loader) decode(ctx context.Context, next func() ([]string, error)) ([]vaccination.Vaccinated, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewParsingError("input has no header row", apperrors.ErrEmptyDataset)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read header", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []vaccination.Vaccinated
	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("row %d", line), err)
		}
		if blank(cells) {
			continue
		}

		v, err := l.parseRow(index, cells)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("row %d", line), err)
		}
		records = append(records, v)
	}

	if len(records) == 0 {
		return nil, apperrors.NewParsingError("input has no observations", apperrors.ErrEmptyDataset)
	}
	return records, nil
}

// columnIndex maps column names to positions and checks that every required
// column is present
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, utf8BOM)))
		if _, dup := index[name]; dup {
			return nil, apperrors.NewParsingError(fmt.Sprintf("duplicate column %q", name), nil)
		}
		index[name] = i
	}
	for _, col := range Columns {
		if col == ColOrigin {
			continue
		}
		if _, ok := index[col]; !ok {
			return nil, apperrors.NewParsingError(fmt.Sprintf("missing column %q", col), nil)
		}
	}
	return index, nil
}

func (l *Loader) parseRow(index map[string]int, cells []string) (vaccination.Vaccinated, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	row := Row{
		Origin:     cell(ColOrigin),
		DataDate:   cell(ColDataDate),
		RealDate:   cell(ColRealDate),
		Period:     cell(ColPeriod),
		Dose:       cell(ColDose),
		Group:      cell(ColGroup),
		Location:   cell(ColLocation),
		Vaccinated: cell(ColVaccinated),
	}.normalize()

	if err := row.validate(l.validate); err != nil {
		return vaccination.Vaccinated{}, err
	}

	v, err := row.observation()
	if err != nil {
		return vaccination.Vaccinated{}, err
	}

	if l.groups != nil && !v.Slice.Group.IsAll() && !l.groups[v.Slice.Group.Value()] {
		return vaccination.Vaccinated{}, fmt.Errorf("unknown group %q", v.Slice.Group.Value())
	}
	if l.locations != nil && !v.Slice.Location.IsAll() && !l.locations[v.Slice.Location.Value()] {
		return vaccination.Vaccinated{}, fmt.Errorf("unknown location %q", v.Slice.Location.Value())
	}
	return v, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
