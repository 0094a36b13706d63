// Package shared holds code used across vaxcli packages that belongs to no
// single layer.
//
// The testutil subpackage provides test helpers:
//
//   - BufferedSlogHandler and NewTestLogger capture slog records so tests
//     can assert on what was logged
//   - FixtureCSV and InconsistentCSV are small observation files with known
//     pipeline outcomes, written to disk with WriteCSV
//
// testutil depends only on the standard library so any package may import
// it from its tests.
package shared
