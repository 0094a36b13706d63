package exporter

import (
	"strconv"
	"time"

	"vaxcli/internal/ingest"
	"vaxcli/internal/vaccination"
)

// Header is the output column order: the input columns followed by the
// provenance flags
var Header = append(append([]string{}, ingest.Columns...), "extrapolated", "interpolated")

// row renders v in Header order
func row(v vaccination.Vaccinated) []string {
	return []string{
		string(v.Source.Origin),
		formatDate(v.Source.DataDate),
		formatDate(v.Source.RealDate),
		string(v.Source.Period),
		v.Slice.Dose.String(),
		v.Slice.Group.String(),
		v.Slice.Location.String(),
		formatCount(v.Count),
		formatBool(v.Extrapolated),
		formatBool(v.Interpolated),
	}
}

// formatCount formats a count with the shortest exact representation
func formatCount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(vaccination.DateLayout)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
