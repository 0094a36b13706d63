// Package app wires vaxcli together: configuration, ingestion, the pipeline
// runner, exporters and the query API.
//
// # Initialization Flow
//
//	1. Load and validate configuration (config.LoadFile)
//	2. Initialize logging and OpenTelemetry (infrastructure)
//	3. Build the engine and register the default stages
//	4. Create the file validator, loader, exporter and series service
//	5. Set up chi middleware and routes
//
// # Usage
//
// Batch mode processes one input file and writes the outputs:
//
//	a, err := app.NewApplication(cfg, logger, providers)
//	result, files, err := a.RunBatch(ctx, "data.csv", "")
//
// Serve mode processes the input once and serves it until ctx is cancelled:
//
//	err := a.Serve(ctx, "data.csv")
package app
