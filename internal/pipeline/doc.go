// Package pipeline reconciles vaccination observations reported at
// different granularities and aggregation levels into one non-overlapping
// series per slice, then extends it with a short-horizon forecast.
//
// # Stages
//
// Every stage takes the full collection and returns a new full collection.
// The default order is fixed by data dependencies:
//
//  1. Deaggregation: wildcard daily observations are split per value, either
//     confirmed by existing peers or estimated from weekly ratios
//  2. Suppression: aggregates and superseded weekly figures are dropped
//  3. Cumulative conversion (only for incremental input)
//  4. Forecast: least-squares line per slice over the trailing window
//  5. Dose timing: dose-1 floor for dose 2, then the dose_2_plus_wait slice
//  6. Non-cumulative conversion (only when increments are requested)
//
// # Failure model
//
// A deaggregation peer mismatch beyond tolerance is fatal and aborts the run
// with a *ConsistencyError. Missing interpolation samples, missing forecast
// samples and negative increments are Diagnostics: they are logged, reported
// per stage and processing continues.
//
// # Usage
//
//	engine, err := pipeline.NewEngine(pipeline.DefaultParams(), logger)
//	if err != nil {
//	    return err
//	}
//	registry, err := pipeline.NewDefaultRegistry(engine, pipeline.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	result, err := pipeline.NewRunner(registry, logger, nil).Run(ctx, records)
package pipeline
