package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaxcli/internal/config"
	"vaxcli/internal/pipeline"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log output is not valid JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("test message", "key", "value")
	logger.Debug("hidden")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.NotContains(t, entries[0], "trace_id")
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.Debug("visible", "slice", "dose_1/80+/all")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "slice=dose_1/80+/all")
}

func TestTraceIDInjection(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		want string
	}{
		{
			name: "explicit trace id",
			ctx:  func() context.Context { return WithTraceID(context.Background(), "trace-1") },
			want: "trace-1",
		},
		{
			name: "pipeline run id",
			ctx:  func() context.Context { return pipeline.ContextWithRunID(context.Background(), "run-7") },
			want: "run-7",
		},
		{
			name: "run context sets both",
			ctx: func() context.Context {
				ctx, _ := RunContext(context.Background())
				return ctx
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
			ctx := tt.ctx()

			logger.With("component", "test").InfoContext(ctx, "with trace")

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			want := tt.want
			if want == "" {
				want = pipeline.RunIDFromContext(ctx)
				require.NotEmpty(t, want)
			}
			assert.Equal(t, want, entries[0]["trace_id"])
			assert.Equal(t, "test", entries[0]["component"])
		})
	}
}

func TestRunContext(t *testing.T) {
	ctx, runID := RunContext(context.Background())
	assert.Len(t, runID, 36)
	assert.Equal(t, runID, GetTraceID(ctx))
	assert.Equal(t, runID, pipeline.RunIDFromContext(ctx))

	_, other := RunContext(context.Background())
	assert.NotEqual(t, runID, other)
}

func TestInitializeLogger_File(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("written to file")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"written to file"`)
}

func TestInitializeLogger_Once(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("Warning").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
