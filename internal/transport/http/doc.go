// Package http implements the read-only query API over the last pipeline
// result. Handlers stay thin: they parse query parameters, call the series
// service and render JSON with go-chi/render.
//
// # Endpoints
//
//	GET /api/health       service status and the loaded run
//	GET /api/series       observations filtered by dose, group, location, from, to
//	GET /api/slices       distinct slices of the loaded result
//	GET /api/stages       per-stage report of the loaded run
//	GET /api/diagnostics  diagnostics raised by the loaded run
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler.
// Malformed dates and unknown doses yield 400. A group or location that the
// loaded result does not contain yields 404. Queries before any result is
// loaded yield 503 with error_code NO_DATASET.
package http
