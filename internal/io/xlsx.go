package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
)

// XLSXExtractor implements Extractor for Excel workbooks. The first row of
// the chosen sheet is the header; cells are read as displayed text.
type XLSXExtractor struct {
	path      string
	sheetName string
}

// NewXLSXExtractor builds an xlsx extractor. An empty sheetName selects
// the workbook's active sheet.
func NewXLSXExtractor(path, sheetName string) *XLSXExtractor {
	return &XLSXExtractor{path: path, sheetName: sheetName}
}

// Extract reads the chosen sheet into a dataset.
func (e *XLSXExtractor) Extract(_ context.Context) (*dataset.Dataset, error) {
	logging.Logf(logging.Debug, "XLSXExtractor reading file: %s (sheet %q)", e.path, e.sheetName)
	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("XLSXExtractor failed to open '%s': %w", e.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Logf(logging.Error, "XLSXExtractor failed to close '%s': %v", e.path, cerr)
		}
	}()

	sheet := e.sheetName
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
		if sheet == "" {
			return nil, fmt.Errorf("XLSXExtractor: no readable sheet in '%s'", e.path)
		}
	} else {
		found := false
		for _, name := range f.GetSheetList() {
			if name == sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("XLSXExtractor: sheet %q not found in '%s'", sheet, e.path)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("XLSXExtractor failed to get rows from sheet %q in '%s': %w", sheet, e.path, err)
	}
	if len(rows) == 0 {
		logging.Logf(logging.Warning, "XLSXExtractor: sheet %q in '%s' is empty.", sheet, e.path)
		return dataset.New()
	}

	header := rows[0]
	ds, err := dataset.New(header...)
	if err != nil {
		return nil, fmt.Errorf("XLSXExtractor: header of sheet %q: %w", sheet, err)
	}
	for i, rec := range rows[1:] {
		row := make([]interface{}, len(header))
		for c := range header {
			if c < len(rec) {
				row[c] = rec[c]
			} else {
				row[c] = nil
			}
		}
		if err := ds.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("XLSXExtractor: row %d of sheet %q: %w", i+2, sheet, err)
		}
	}

	logging.Logf(logging.Info, "XLSXExtractor loaded %d rows, %d columns from sheet %q in %s.",
		ds.NumRows(), ds.NumColumns(), sheet, e.path)
	return ds, nil
}

// XLSXLoader implements Loader for Excel workbooks; the output file is
// rewritten in full.
type XLSXLoader struct {
	path      string
	sheetName string
}

// NewXLSXLoader builds an xlsx loader writing to the named sheet.
func NewXLSXLoader(path, sheetName string) *XLSXLoader {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &XLSXLoader{path: path, sheetName: sheetName}
}

// Load writes the dataset as a header row plus one sheet row per dataset
// row. Null cells stay empty.
func (l *XLSXLoader) Load(_ context.Context, ds *dataset.Dataset) error {
	logging.Logf(logging.Debug, "XLSXLoader writing %d rows to file: %s (sheet %q)", ds.NumRows(), l.path, l.sheetName)
	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("XLSXLoader failed to create directory for '%s': %w", l.path, err)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Logf(logging.Error, "XLSXLoader failed to close workbook: %v", cerr)
		}
	}()

	const defaultSheet = "Sheet1"
	if l.sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, l.sheetName); err != nil {
			return fmt.Errorf("XLSXLoader failed to name sheet %q: %w", l.sheetName, err)
		}
	}

	header := make([]interface{}, ds.NumColumns())
	for i, c := range ds.Columns() {
		header[i] = c
	}
	if err := f.SetSheetRow(l.sheetName, "A1", &header); err != nil {
		return fmt.Errorf("XLSXLoader failed to write header row: %w", err)
	}

	for r := 0; r < ds.NumRows(); r++ {
		row := ds.Row(r)
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("XLSXLoader failed to address row %d: %w", r+2, err)
		}
		if err := f.SetSheetRow(l.sheetName, cell, &row); err != nil {
			return fmt.Errorf("XLSXLoader failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("XLSXLoader failed to save '%s': %w", l.path, err)
	}

	logging.Logf(logging.Info, "XLSXLoader wrote %d rows to sheet %q in %s.", ds.NumRows(), l.sheetName, l.path)
	return nil
}
