package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"vaxcli/internal/pipeline"
	"vaxcli/internal/vaccination"
)

// WriteSummary writes a plain-text report of a run: stage table, slices and
// diagnostics
func WriteSummary(path string, result *pipeline.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := renderSummary(file, result); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func renderSummary(w io.Writer, result *pipeline.Result) error {
	fmt.Fprintf(w, "run:       %s\n", result.RunID)
	fmt.Fprintf(w, "generated: %s\n", result.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "records:   %d\n", len(result.Records))
	if len(result.Duplicates) > 0 {
		fmt.Fprintf(w, "duplicate input keys: %d\n", len(result.Duplicates))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tIN\tOUT\tDIAGNOSTICS\tDURATION")
	for _, s := range result.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.ID, s.RecordsIn, s.RecordsOut, s.Diagnostics, s.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "slices:")
	keys, groups := vaccination.GroupBySlice(result.Records)
	for _, s := range keys {
		series := groups[s]
		first, last := series[0], series[len(series)-1]
		fmt.Fprintf(w, "  %s  %d records  %s .. %s\n", s, len(series),
			formatDate(first.Source.RealDate), formatDate(last.Source.RealDate))
	}

	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "diagnostics:")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
