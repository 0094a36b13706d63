// Package vaccination defines the observation model shared by every stage of
// the reconciliation pipeline: provenance (Source), the dimensional key
// (Slice, with an explicit wildcard Member per dimension) and the immutable
// Vaccinated observation.
package vaccination
