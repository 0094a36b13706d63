// Package services implements the business logic behind the query API.
//
// SeriesService keeps the result of the most recent pipeline run in memory
// and answers filtered reads against it. Results are swapped atomically with
// Load, so a run can be served while the next one is computed.
//
// Queries issued before the first Load fail with ErrNoDataset; invalid
// filters fail with a validation error from the errors package, which the
// HTTP layer maps to RFC 7807 problem details.
//
// Example usage:
//
//	svc := services.NewSeriesService(config.AppVersion, logger)
//	svc.Load(result)
//	records, err := svc.Query(ctx, services.SeriesFilter{Dose: "dose_1"})
package services
