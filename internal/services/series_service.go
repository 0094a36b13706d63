package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/pipeline"
	"vaxcli/internal/vaccination"
)

// SeriesFilter selects observations. Empty dimension values and zero dates
// match everything; "all" selects the wildcard member only.
type SeriesFilter struct {
	Dose     string
	Group    string
	Location string
	From     time.Time // Inclusive lower bound on the publication date
	To       time.Time // Inclusive upper bound on the publication date
}

// Validate checks the filter before it is applied
func (f SeriesFilter) Validate() error {
	if f.Dose != "" && !vaccination.KnownDose(vaccination.ParseMember(strings.ToLower(f.Dose))) {
		return apperrors.NewAppValidationError(fmt.Sprintf("unknown dose %q", f.Dose))
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return apperrors.NewAppValidationError(fmt.Sprintf("to %s is before from %s",
			f.To.Format(vaccination.DateLayout), f.From.Format(vaccination.DateLayout)))
	}
	return nil
}

// Matches reports whether v passes the filter
func (f SeriesFilter) Matches(v vaccination.Vaccinated) bool {
	if f.Dose != "" && vaccination.ParseMember(strings.ToLower(f.Dose)) != v.Slice.Dose {
		return false
	}
	if f.Group != "" && vaccination.ParseMember(f.Group) != v.Slice.Group {
		return false
	}
	if f.Location != "" && vaccination.ParseMember(f.Location) != v.Slice.Location {
		return false
	}
	if !f.From.IsZero() && v.Source.RealDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && v.Source.RealDate.After(f.To) {
		return false
	}
	return true
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	Records     int        `json:"records"`
	RunID       string     `json:"run_id,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	Uptime      string     `json:"uptime"`
}

// SeriesService serves the result of the last pipeline run
type SeriesService struct {
	mu        sync.RWMutex
	result    *pipeline.Result
	version   string
	startTime time.Time
	logger    *slog.Logger
}

// NewSeriesService creates an empty series service
func NewSeriesService(version string, logger *slog.Logger) *SeriesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeriesService{
		version:   version,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "series")),
	}
}

// Load replaces the served result
func (s *SeriesService) Load(result *pipeline.Result) {
	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	if result != nil {
		s.logger.Info("pipeline result loaded",
			slog.String("run_id", result.RunID),
			slog.Int("records", len(result.Records)),
		)
	}
}

func (s *SeriesService) current() (*pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrNoDataset
	}
	return s.result, nil
}

// Query returns the observations matching filter in canonical order
func (s *SeriesService) Query(ctx context.Context, filter SeriesFilter) ([]vaccination.Vaccinated, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	result, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := checkMembers(result.Records, filter); err != nil {
		return nil, err
	}

	out := make([]vaccination.Vaccinated, 0)
	for _, v := range result.Records {
		if filter.Matches(v) {
			out = append(out, v)
		}
	}

	s.logger.DebugContext(ctx, "series query",
		slog.String("dose", filter.Dose),
		slog.String("group", filter.Group),
		slog.String("location", filter.Location),
		slog.Int("matches", len(out)),
	)
	return out, nil
}

// checkMembers rejects a group or location that no record carries, so a
// misspelled member is not mistaken for an empty series
func checkMembers(records []vaccination.Vaccinated, filter SeriesFilter) error {
	groupSeen, locationSeen := filter.Group == "", filter.Location == ""
	group, location := vaccination.ParseMember(filter.Group), vaccination.ParseMember(filter.Location)
	for _, v := range records {
		groupSeen = groupSeen || v.Slice.Group == group
		locationSeen = locationSeen || v.Slice.Location == location
		if groupSeen && locationSeen {
			return nil
		}
	}
	if !groupSeen {
		return apperrors.NewNotFoundError(fmt.Sprintf("group %q", filter.Group))
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("location %q", filter.Location))
}

// Slices returns the distinct slices of the loaded result
func (s *SeriesService) Slices(ctx context.Context) ([]vaccination.Slice, error) {
	result, err := s.current()
	if err != nil {
		return nil, err
	}
	return vaccination.DistinctSlices(result.Records), nil
}

// Stages returns the stage reports of the loaded result
func (s *SeriesService) Stages(ctx context.Context) ([]pipeline.StageReport, error) {
	result, err := s.current()
	if err != nil {
		return nil, err
	}
	return result.Stages, nil
}

// Diagnostics returns the diagnostics raised by the loaded run
func (s *SeriesService) Diagnostics(ctx context.Context) ([]pipeline.Diagnostic, error) {
	result, err := s.current()
	if err != nil {
		return nil, err
	}
	if result.Diagnostics == nil {
		return []pipeline.Diagnostic{}, nil
	}
	return result.Diagnostics, nil
}

// Health reports whether a result is loaded and summarizes it
func (s *SeriesService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:  "empty",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	}

	result, err := s.current()
	if err != nil {
		return status
	}

	generated := result.GeneratedAt
	status.Status = "ok"
	status.Records = len(result.Records)
	status.RunID = result.RunID
	status.GeneratedAt = &generated
	return status
}
