package pipeline

import (
	"context"
	"fmt"
	"sync"

	"vaxcli/internal/vaccination"
)

// Stage identifiers
const (
	StageIDDeaggregate   = "deaggregate"
	StageIDSuppress      = "suppress"
	StageIDCumulative    = "cumulative"
	StageIDForecast      = "forecast"
	StageIDDoseLag       = "dose_lag"
	StageIDDoseWait      = "dose_wait"
	StageIDNonCumulative = "non_cumulative"
)

// Stage is one whole-collection transform of the pipeline
type Stage interface {
	// ID returns the unique identifier for this stage
	ID() string

	// Name returns the human-readable name for this stage
	Name() string

	// Apply transforms the full collection into a new full collection
	Apply(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error)
}

// StageFunc adapts a function to the Stage interface
type StageFunc struct {
	id    string
	name  string
	apply func(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error)
}

// NewStage creates a stage from a transform function
func NewStage(id, name string, apply func(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error)) *StageFunc {
	return &StageFunc{id: id, name: name, apply: apply}
}

// ID implements Stage
func (s *StageFunc) ID() string { return s.id }

// Name implements Stage
func (s *StageFunc) Name() string { return s.name }

// Apply implements Stage
func (s *StageFunc) Apply(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
	return s.apply(ctx, records)
}

// Registry keeps stages in registration order
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string
}

// NewRegistry creates an empty stage registry
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
		order:  make([]string, 0),
	}
}

// Register appends a stage to the registry
func (r *Registry) Register(stage Stage) error {
	if stage == nil {
		return fmt.Errorf("cannot register nil stage")
	}

	id := stage.ID()
	if id == "" {
		return fmt.Errorf("stage ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[id]; exists {
		return fmt.Errorf("stage with ID %s already registered", id)
	}

	r.stages[id] = stage
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a stage by ID
func (r *Registry) Get(id string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stage, exists := r.stages[id]
	if !exists {
		return nil, fmt.Errorf("stage with ID %s not found", id)
	}
	return stage, nil
}

// Has checks if a stage is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.stages[id]
	return exists
}

// List returns all registered stages in registration order
func (r *Registry) List() []Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stages := make([]Stage, 0, len(r.order))
	for _, id := range r.order {
		stages = append(stages, r.stages[id])
	}
	return stages
}

// ListIDs returns all registered stage IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered stages
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stages)
}

// Options selects which optional stages the default registry contains
type Options struct {
	// InputCumulative is false when the input holds increments; a
	// cumulative conversion then runs after suppression.
	InputCumulative bool `json:"input_cumulative"`
	// OutputCumulative is false when the result should hold increments.
	OutputCumulative bool `json:"output_cumulative"`
	Forecast         bool `json:"forecast"`
	DoseTiming       bool `json:"dose_timing"`
}

// DefaultOptions runs every stage on cumulative input and keeps the output
// cumulative
func DefaultOptions() Options {
	return Options{
		InputCumulative:  true,
		OutputCumulative: true,
		Forecast:         true,
		DoseTiming:       true,
	}
}

// NewDefaultRegistry registers the engine's transforms in their fixed order:
// deaggregation, suppression, optional cumulative conversion, forecast,
// dose timing, optional non-cumulative conversion.
func NewDefaultRegistry(e *Engine, opts Options) (*Registry, error) {
	r := NewRegistry()

	stages := []Stage{
		NewStage(StageIDDeaggregate, "Deaggregation", e.AddDeaggregates),
		NewStage(StageIDSuppress, "Aggregate Suppression", func(_ context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
			return e.RemoveAggregates(records), nil, nil
		}),
	}
	if !opts.InputCumulative {
		stages = append(stages, NewStage(StageIDCumulative, "Cumulative Conversion", func(_ context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
			return e.MakeCumulative(records), nil, nil
		}))
	}
	if opts.Forecast {
		stages = append(stages, NewStage(StageIDForecast, "Forecast", func(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
			out, diags := e.AddExtrapolations(ctx, records)
			return out, diags, nil
		}))
	}
	if opts.DoseTiming {
		stages = append(stages,
			NewStage(StageIDDoseLag, "Dose-1 Floor for Dose 2", func(_ context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
				return e.AddDoseLag(records), nil, nil
			}),
			NewStage(StageIDDoseWait, "Dose 2 Plus Wait", func(_ context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
				return e.AddDose2Wait(records), nil, nil
			}),
		)
	}
	if !opts.OutputCumulative {
		stages = append(stages, NewStage(StageIDNonCumulative, "Non-Cumulative Conversion", func(ctx context.Context, records []vaccination.Vaccinated) ([]vaccination.Vaccinated, []Diagnostic, error) {
			out, diags := e.MakeNonCumulative(ctx, records)
			return out, diags, nil
		}))
	}

	for _, s := range stages {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
