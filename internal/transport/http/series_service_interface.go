package http

import (
	"context"

	"vaxcli/internal/pipeline"
	"vaxcli/internal/services"
	"vaxcli/internal/vaccination"
)

// SeriesServiceInterface defines the read operations behind the query API
type SeriesServiceInterface interface {
	Query(ctx context.Context, filter services.SeriesFilter) ([]vaccination.Vaccinated, error)
	Slices(ctx context.Context) ([]vaccination.Slice, error)
	Stages(ctx context.Context) ([]pipeline.StageReport, error)
	Diagnostics(ctx context.Context) ([]pipeline.Diagnostic, error)
	Health(ctx context.Context) services.HealthStatus
}
