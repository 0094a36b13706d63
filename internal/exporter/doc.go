// Package exporter writes pipeline results to disk.
//
// Three outputs are produced per run:
//
//   - CSV: the input columns plus extrapolated and interpolated flags, with a
//     UTF-8 BOM so Excel recognizes the encoding
//   - XLSX: the same table on a single "vaccinated" sheet
//   - Summary: a plain-text report of stages, slices and diagnostics
//
// Example usage:
//
//	files, err := exporter.New("out", logger).WriteAll(ctx, "", result)
package exporter
