package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Diagnostic kinds
const (
	DiagInterpolationSkipped = "interpolation_skipped"
	DiagForecastSkipped      = "forecast_skipped"
	DiagNegativeDifference   = "negative_difference"
)

// Diagnostic is a non-fatal notice raised while transforming the dataset.
// Diagnostics are a side channel and never change the data contract.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Slice   string `json:"slice"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message"`
}

// String renders the diagnostic as a single line
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Engine applies the whole-collection transforms with a fixed set of
// parameters. It holds no state between calls.
type Engine struct {
	params Params
	logger *slog.Logger
}

// NewEngine creates an engine after validating params
func NewEngine(params Params, logger *slog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		params: params,
		logger: logger.With(slog.String("component", "pipeline")),
	}, nil
}

// Params returns the parameters the engine was built with
func (e *Engine) Params() Params {
	return e.params
}

// warn logs d and returns it so callers can collect it
func (e *Engine) warn(ctx context.Context, d Diagnostic) Diagnostic {
	e.logger.WarnContext(ctx, d.Message,
		slog.String("kind", d.Kind),
		slog.String("slice", d.Slice),
		slog.String("date", d.Date),
	)
	return d
}
