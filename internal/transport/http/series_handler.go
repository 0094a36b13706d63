package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "vaxcli/internal/errors"
	"vaxcli/internal/services"
	"vaxcli/internal/vaccination"
)

// SeriesHandler serves the read-only query API with RFC 7807 errors
type SeriesHandler struct {
	service      SeriesServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(service SeriesServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SeriesHandler {
	return &SeriesHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "series_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the API routes, to be mounted under /api
func (h *SeriesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", h.Health)
	r.Get("/series", h.GetSeries)
	r.Get("/slices", h.GetSlices)
	r.Get("/stages", h.GetStages)
	r.Get("/diagnostics", h.GetDiagnostics)

	return r
}

// Health handles GET /api/health
func (h *SeriesHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Health(r.Context()))
}

// GetSeries handles GET /api/series?dose=&group=&location=&from=&to=
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.Render(w, r, NewSeriesResponse(records))
}

// GetSlices handles GET /api/slices
func (h *SeriesHandler) GetSlices(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.Slices(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, slices)
}

// GetStages handles GET /api/stages
func (h *SeriesHandler) GetStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.service.Stages(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, NewStageDTOs(stages))
}

// GetDiagnostics handles GET /api/diagnostics
func (h *SeriesHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, diags)
}

// handleServiceError maps service errors to API errors
func (h *SeriesHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNoDataset) {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoDataset)
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

// parseFilter reads the series filter from query parameters
func parseFilter(q url.Values) (services.SeriesFilter, error) {
	filter := services.SeriesFilter{
		Dose:     q.Get("dose"),
		Group:    q.Get("group"),
		Location: q.Get("location"),
	}

	var err error
	if filter.From, err = parseDateParam(q, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(q, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDateParam(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := vaccination.ParseDate(raw)
	if err != nil {
		return time.Time{}, apierrors.ErrValidation(name, fmt.Sprintf("expected a %s date, got %q", vaccination.DateLayout, raw))
	}
	return t, nil
}
