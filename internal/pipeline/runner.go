package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/vaccination"
)

const tracerName = "vaxcli/pipeline"

// StageReport summarizes one stage of a run
type StageReport struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	RecordsIn   int           `json:"records_in"`
	RecordsOut  int           `json:"records_out"`
	Diagnostics int           `json:"diagnostics"`
	Duration    time.Duration `json:"duration"`
}

// Result is the outcome of a pipeline run
type Result struct {
	RunID       string                   `json:"run_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Records     []vaccination.Vaccinated `json:"records"`
	Stages      []StageReport            `json:"stages"`
	Diagnostics []Diagnostic             `json:"diagnostics"`
	Duplicates  []vaccination.Key        `json:"-"`
}

// StageObserver receives a report after every completed stage
type StageObserver interface {
	ObserveStage(ctx context.Context, report StageReport, err error)
}

type runIDKey struct{}

// ContextWithRunID attaches a run ID to ctx
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID attached to ctx, or ""
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Runner applies the stages of a registry sequentially to a dataset
type Runner struct {
	registry *Registry
	logger   *slog.Logger
	observer StageObserver
	tracer   trace.Tracer
}

// NewRunner creates a runner. observer may be nil.
func NewRunner(registry *Registry, logger *slog.Logger, observer StageObserver) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		logger:   logger.With(slog.String("component", "runner")),
		observer: observer,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run threads records through every registered stage in order. A stage
// error aborts the run; diagnostics are collected and the run continues.
func (r *Runner) Run(ctx context.Context, records []vaccination.Vaccinated) (*Result, error) {
	if len(records) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "no observations to process", apperrors.ErrEmptyDataset)
	}

	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = ContextWithRunID(ctx, runID)
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("records.in", len(records)),
	))
	defer span.End()

	start := time.Now()
	logger := r.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "starting pipeline run",
		slog.Int("records", len(records)),
		slog.Any("stages", r.registry.ListIDs()),
	)

	result := &Result{RunID: runID}

	result.Duplicates = vaccination.Duplicates(records)
	if len(result.Duplicates) > 0 {
		logger.WarnContext(ctx, "input contains duplicate observations",
			slog.Int("duplicates", len(result.Duplicates)),
			slog.String("first", fmt.Sprintf("%s %s %s",
				result.Duplicates[0].Slice,
				result.Duplicates[0].RealDate.Format(vaccination.DateLayout),
				result.Duplicates[0].Period)),
		)
	}

	current := records
	for _, stage := range r.registry.List() {
		next, report, diags, err := r.runStage(ctx, stage, current)
		result.Stages = append(result.Stages, report)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.ErrorContext(ctx, "pipeline run aborted",
				slog.String("stage", stage.ID()),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("stage %s: %w", stage.ID(), err)
		}
		current = next
	}

	result.Records = vaccination.SortCanonical(current)
	result.GeneratedAt = time.Now().UTC()

	span.SetAttributes(attribute.Int("records.out", len(result.Records)))
	logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("records", len(result.Records)),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// runStage applies one stage inside its own span
func (r *Runner) runStage(ctx context.Context, stage Stage, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, StageReport, []Diagnostic, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+stage.ID())
	defer span.End()

	start := time.Now()
	out, diags, err := stage.Apply(ctx, records)

	report := StageReport{
		ID:          stage.ID(),
		Name:        stage.Name(),
		RecordsIn:   len(records),
		RecordsOut:  len(out),
		Diagnostics: len(diags),
		Duration:    time.Since(start),
	}

	span.SetAttributes(
		attribute.Int("records.in", report.RecordsIn),
		attribute.Int("records.out", report.RecordsOut),
		attribute.Int("diagnostics", report.Diagnostics),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if r.observer != nil {
		r.observer.ObserveStage(ctx, report, err)
	}

	r.logger.DebugContext(ctx, "stage completed",
		slog.String("stage", report.ID),
		slog.Int("records_in", report.RecordsIn),
		slog.Int("records_out", report.RecordsOut),
		slog.Int("diagnostics", report.Diagnostics),
		slog.Duration("duration", report.Duration),
	)
	return out, report, diags, err
}
