package exporter

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/pipeline"
)

// Files lists the paths written by Exporter.WriteAll
type Files struct {
	CSV     string `json:"csv"`
	XLSX    string `json:"xlsx"`
	Summary string `json:"summary"`
}

// Exporter writes run results below an output directory
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New creates an exporter writing to dir
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger.With(slog.String("component", "exporter"))}
}

// Paths returns the output paths for stamp. An empty stamp yields the plain
// file names.
func (e *Exporter) Paths(stamp string) Files {
	name := func(base string) string {
		if stamp != "" {
			base = stamp + "_" + base
		}
		return filepath.Join(e.dir, base)
	}
	return Files{
		CSV:     name("vaccinated.csv"),
		XLSX:    name("vaccinated.xlsx"),
		Summary: name("summary.txt"),
	}
}

// WriteAll writes the CSV, XLSX and summary outputs of result concurrently
func (e *Exporter) WriteAll(ctx context.Context, stamp string, result *pipeline.Result) (Files, error) {
	files := e.Paths(stamp)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return WriteCSV(files.CSV, result.Records, WriteOptions{BOMPrefix: true})
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return WriteXLSX(files.XLSX, result.Records)
	})
	g.Go(func() error {
		return WriteSummary(files.Summary, result)
	})

	if err := g.Wait(); err != nil {
		return Files{}, apperrors.NewStorageError("failed to export results", err)
	}

	e.logger.InfoContext(ctx, "results exported",
		slog.String("csv", files.CSV),
		slog.String("xlsx", files.XLSX),
		slog.String("summary", files.Summary),
		slog.Int("records", len(result.Records)),
	)
	return files, nil
}
