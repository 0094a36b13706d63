package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"vaxcli/internal/config"
	apperrors "vaxcli/internal/errors"
	"vaxcli/internal/exporter"
	"vaxcli/internal/infrastructure"
	"vaxcli/internal/ingest"
	customMiddleware "vaxcli/internal/middleware"
	"vaxcli/internal/pipeline"
	"vaxcli/internal/services"
	handlers "vaxcli/internal/transport/http"
	"vaxcli/internal/validation"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Validator     *validation.FileValidator
	Loader        *ingest.Loader
	Runner        *pipeline.Runner
	Exporter      *exporter.Exporter
	Series        *services.SeriesService
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication wires the pipeline, its adapters and the query API from a
// validated configuration
func NewApplication(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	params, err := cfg.Pipeline.Params()
	if err != nil {
		return nil, err
	}

	engine, err := pipeline.NewEngine(params, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	registry, err := pipeline.NewDefaultRegistry(engine, cfg.Pipeline.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to register stages: %w", err)
	}

	stageMetrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Validator:     validation.NewFileValidator(logger),
		Loader: ingest.NewLoader(ingest.Options{
			Groups:    cfg.Ingest.Groups,
			Locations: cfg.Ingest.Locations,
			Sheet:     cfg.Ingest.Sheet,
		}, logger),
		Runner:   pipeline.NewRunner(registry, logger, stageMetrics),
		Exporter: exporter.New(cfg.Paths.OutputDir, logger),
		Series:   services.NewSeriesService(config.AppVersion, logger),
	}

	if err := app.setupRouter(); err != nil {
		return nil, err
	}
	app.createServer()

	return app, nil
}

// Process loads input and runs it through the pipeline under a fresh run ID
func (a *Application) Process(ctx context.Context, input string) (*pipeline.Result, error) {
	ctx, runID := infrastructure.RunContext(ctx)

	a.Logger.InfoContext(ctx, "processing input",
		slog.String("run_id", runID),
		slog.String("input", input),
	)

	if err := a.Validator.ValidateInputFile(input); err != nil {
		return nil, err
	}

	records, err := a.Loader.Load(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", input, err)
	}

	return a.Runner.Run(ctx, records)
}

// RunBatch processes input and writes the outputs. stamp prefixes the output
// file names when set.
func (a *Application) RunBatch(ctx context.Context, input, stamp string) (*pipeline.Result, exporter.Files, error) {
	if err := a.Validator.ValidateOutputDirectory(a.Config.Paths.OutputDir); err != nil {
		return nil, exporter.Files{}, err
	}

	result, err := a.Process(ctx, input)
	if err != nil {
		return nil, exporter.Files{}, err
	}

	files, err := a.Exporter.WriteAll(pipeline.ContextWithRunID(ctx, result.RunID), stamp, result)
	if err != nil {
		return nil, exporter.Files{}, err
	}
	return result, files, nil
}

// Serve processes input once, then serves the query API until ctx is
// cancelled
func (a *Application) Serve(ctx context.Context, input string) error {
	result, err := a.Process(ctx, input)
	if err != nil {
		return err
	}
	a.Series.Load(result)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "query API listening",
			slog.String("addr", a.Server.Addr),
			slog.String("run_id", result.RunID),
		)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully shuts the HTTP server down
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down query API")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "query API stopped")
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	errHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")

	// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → RateLimit
	r.Use(customMiddleware.RequestID)
	r.Use(chimw.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(errHandler))

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				errHandler,
				a.Logger,
			).Handler)
		}

		seriesHandler := handlers.NewSeriesHandler(a.Series, a.Logger, errHandler)
		r.Mount(config.APIBasePath, seriesHandler.Routes())
	})

	// Scrapes bypass logging and rate limiting
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}
