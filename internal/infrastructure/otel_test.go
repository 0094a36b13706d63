package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"vaxcli/internal/config"
	"vaxcli/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.TelemetryConfig
		wantTracer bool
		wantMeter  bool
		wantErr    bool
	}{
		{
			name:      "defaults",
			cfg:       config.Default().Telemetry,
			wantMeter: true,
		},
		{
			name:       "stdout traces",
			cfg:        config.TelemetryConfig{ServiceName: "test", TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1},
			wantTracer: true,
		},
		{
			name: "everything off",
			cfg:  config.TelemetryConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "none"},
		},
		{
			name:    "unknown trace exporter",
			cfg:     config.TelemetryConfig{ServiceName: "test", TraceExporter: "otlp", MetricExporter: "none"},
			wantErr: true,
		},
		{
			name:    "unknown metric exporter",
			cfg:     config.TelemetryConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "statsd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, io.Discard, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantTracer, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMeter, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantMeter, providers.PrometheusHTTP != nil)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, providers.Shutdown(ctx))
		})
	}
}

func TestStdoutTraces(t *testing.T) {
	var out bytes.Buffer
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "none",
		SampleRatio:    1,
	}, &out, discardLogger())
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "pipeline.stage.suppress")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, out.String(), "pipeline.stage.suppress")
}

func TestPipelineMetrics_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(config.Default().Telemetry, io.Discard, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	metrics.ObserveStage(context.Background(), pipeline.StageReport{
		ID:          pipeline.StageIDSuppress,
		RecordsIn:   10,
		RecordsOut:  7,
		Diagnostics: 2,
		Duration:    time.Millisecond,
	}, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "vax_stage_records_in")
	assert.Contains(t, body, "vax_stage_records_out")
	assert.Contains(t, body, "vax_stage_duration_seconds")
	assert.Contains(t, body, `stage="suppress"`)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestPipelineMetrics_ObserveStage(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.ObserveStage(ctx, pipeline.StageReport{ID: "deaggregate", RecordsIn: 4, RecordsOut: 6, Diagnostics: 1}, nil)
	metrics.ObserveStage(ctx, pipeline.StageReport{ID: "suppress", RecordsIn: 6, RecordsOut: 3}, nil)
	metrics.ObserveStage(ctx, pipeline.StageReport{ID: "forecast", RecordsIn: 3}, errors.New("boom"))

	sums := collect(t, reader)
	assert.Equal(t, int64(13), sums["vax_stage_records_in"])
	assert.Equal(t, int64(9), sums["vax_stage_records_out"])
	assert.Equal(t, int64(1), sums["vax_stage_skips"])
	assert.Equal(t, int64(1), sums["vax_stage_failures"])
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewHTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	metrics.RecordRequest(context.Background(), "/api/series", http.StatusOK, 0.01)
	metrics.RecordRequest(context.Background(), "/api/series", http.StatusBadRequest, 0.02)

	assert.Equal(t, int64(2), collect(t, reader)["http_requests_total"])
}
