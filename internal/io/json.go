package io

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
)

// JSONExtractor implements Extractor for files holding a JSON array of
// objects. Column order is the first-seen key order across records.
type JSONExtractor struct {
	path string
}

// NewJSONExtractor builds a JSON extractor.
func NewJSONExtractor(path string) *JSONExtractor {
	return &JSONExtractor{path: path}
}

// Extract reads the whole array into a dataset. JSON null becomes a null
// cell; numbers decode as float64; missing keys become null cells.
func (e *JSONExtractor) Extract(_ context.Context) (*dataset.Dataset, error) {
	logging.Logf(logging.Debug, "JSONExtractor reading file: %s", e.path)
	fileBytes, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("JSONExtractor failed to read '%s': %w", e.path, err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(fileBytes, &records); err != nil {
		return nil, fmt.Errorf("JSONExtractor: '%s' is not a JSON array of objects: %w", e.path, err)
	}

	// Two passes: establish a deterministic column order, then fill rows.
	var columns []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}

	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("JSONExtractor: %w", err)
	}
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for c, name := range columns {
			row[c] = rec[name]
		}
		if err := ds.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("JSONExtractor: record %d of '%s': %w", i, e.path, err)
		}
	}

	logging.Logf(logging.Info, "JSONExtractor loaded %d rows, %d columns from %s.", ds.NumRows(), ds.NumColumns(), e.path)
	return ds, nil
}

// JSONLoader implements Loader writing the dataset as an indented JSON
// array of objects, replacing the file.
type JSONLoader struct {
	path string
}

// NewJSONLoader builds a JSON loader.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{path: path}
}

// Load writes every row as one object keyed by column name.
func (l *JSONLoader) Load(_ context.Context, ds *dataset.Dataset) error {
	logging.Logf(logging.Debug, "JSONLoader writing %d rows to file: %s", ds.NumRows(), l.path)
	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("JSONLoader failed to create directory for '%s': %w", l.path, err)
		}
	}

	records := make([]map[string]interface{}, ds.NumRows())
	for r := range records {
		records[r] = ds.RowMap(r)
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONLoader failed to marshal records: %w", err)
	}
	if err := os.WriteFile(l.path, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("JSONLoader failed to write '%s': %w", l.path, err)
	}

	logging.Logf(logging.Info, "JSONLoader wrote %d rows to %s.", ds.NumRows(), l.path)
	return nil
}
