package io

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
)

// CSVExtractor implements Extractor for delimited text files. The first
// record is the header; every cell is read as text.
type CSVExtractor struct {
	path      string
	delimiter rune
}

// NewCSVExtractor builds a CSV extractor. delimiter must be a single
// character; "\t" is accepted for tab-separated files.
func NewCSVExtractor(path, delimiter string) (*CSVExtractor, error) {
	d, err := delimiterRune(delimiter)
	if err != nil {
		return nil, err
	}
	return &CSVExtractor{path: path, delimiter: d}, nil
}

func delimiterRune(delimiter string) (rune, error) {
	if delimiter == "\\t" || delimiter == "\t" {
		return '\t', nil
	}
	runes := []rune(delimiter)
	if len(runes) != 1 {
		return 0, fmt.Errorf("csv delimiter must be a single character, got %q", delimiter)
	}
	return runes[0], nil
}

// Extract reads the whole file into a dataset.
func (e *CSVExtractor) Extract(_ context.Context) (*dataset.Dataset, error) {
	logging.Logf(logging.Debug, "CSVExtractor reading file: %s", e.path)
	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("CSVExtractor failed to open '%s': %w", e.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = e.delimiter
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVExtractor failed to parse '%s': %w", e.path, err)
	}
	if len(records) == 0 {
		logging.Logf(logging.Warning, "CSVExtractor: file '%s' is empty (no header row).", e.path)
		return dataset.New()
	}

	header := records[0]
	ds, err := dataset.New(header...)
	if err != nil {
		return nil, fmt.Errorf("CSVExtractor: header of '%s': %w", e.path, err)
	}
	for i, rec := range records[1:] {
		row := make([]interface{}, len(header))
		for c := range header {
			if c < len(rec) {
				row[c] = rec[c]
			} else {
				// Short records pad with nulls rather than empty text so
				// remove_nulls can see genuinely absent cells.
				row[c] = nil
			}
		}
		if err := ds.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("CSVExtractor: row %d of '%s': %w", i+2, e.path, err)
		}
	}

	logging.Logf(logging.Info, "CSVExtractor loaded %d rows, %d columns from %s.", ds.NumRows(), ds.NumColumns(), e.path)
	return ds, nil
}

// CSVLoader implements Loader for delimited text files. The previous file
// contents, if any, are replaced.
type CSVLoader struct {
	path      string
	delimiter rune
}

// NewCSVLoader builds a CSV loader.
func NewCSVLoader(path, delimiter string) (*CSVLoader, error) {
	d, err := delimiterRune(delimiter)
	if err != nil {
		return nil, err
	}
	return &CSVLoader{path: path, delimiter: d}, nil
}

// Load writes the dataset as header plus one record per row. Cells are
// written in their canonical textual form; nulls become empty fields.
func (l *CSVLoader) Load(_ context.Context, ds *dataset.Dataset) error {
	logging.Logf(logging.Debug, "CSVLoader writing %d rows to file: %s", ds.NumRows(), l.path)
	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("CSVLoader failed to create directory for '%s': %w", l.path, err)
		}
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("CSVLoader failed to create '%s': %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = l.delimiter

	if err := w.Write(ds.Columns()); err != nil {
		return fmt.Errorf("CSVLoader failed to write header to '%s': %w", l.path, err)
	}
	record := make([]string, ds.NumColumns())
	for r := 0; r < ds.NumRows(); r++ {
		for c := range record {
			record[c] = dataset.TextOf(ds.Value(r, c))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("CSVLoader failed to write row %d to '%s': %w", r, l.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("CSVLoader failed flushing '%s': %w", l.path, err)
	}

	logging.Logf(logging.Info, "CSVLoader wrote %d rows to %s.", ds.NumRows(), l.path)
	return nil
}
