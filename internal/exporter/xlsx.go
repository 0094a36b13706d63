package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"vaxcli/internal/vaccination"
)

// DefaultSheet is the worksheet written by WriteXLSX
const DefaultSheet = "vaccinated"

// WriteXLSX writes records to a single-sheet workbook at path. Counts are
// stored as numbers so spreadsheets can aggregate them.
func WriteXLSX(path string, records []vaccination.Vaccinated) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(DefaultSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	headerRow := make([]interface{}, len(Header))
	for i, h := range Header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, v := range records {
		cells := row(v)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		values[7] = v.Count

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(filepath.Clean(path)); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
