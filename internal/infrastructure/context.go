package infrastructure

import (
	"context"

	"github.com/google/uuid"

	"vaxcli/internal/pipeline"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// RunContext prepares ctx for one pipeline run. The run ID doubles as the
// trace ID so every log line of the run correlates.
func RunContext(ctx context.Context) (context.Context, string) {
	runID := GenerateTraceID()
	ctx = WithTraceID(ctx, runID)
	return pipeline.ContextWithRunID(ctx, runID), runID
}

