package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"etl-cleaner/internal/cleaner"
)

// writeTempConfig writes YAML content to a temp file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	content := `
logging:
  level: debug
connection:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/"
source:
  type: mysql
  database: etl
  table: employee_data
destination:
  type: mysql
filter: "age > 0"
rules:
  name:
    - drop_duplicates
    - remove_nulls
  age:
    - validate_numeric
onUnknownColumn: fail
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Source.Database != "etl" || cfg.Source.Table != "employee_data" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Destination.Table != DefaultTargetTable {
		t.Errorf("destination table = %q, want default %q", cfg.Destination.Table, DefaultTargetTable)
	}
	if cfg.OnUnknownColumn != UnknownColumnFail {
		t.Errorf("onUnknownColumn = %q, want fail", cfg.OnUnknownColumn)
	}

	rs, err := cfg.RuleSet()
	if err != nil {
		t.Fatalf("RuleSet: %v", err)
	}
	want := cleaner.RuleSet{
		"name": {cleaner.DropDuplicates, cleaner.RemoveNulls},
		"age":  {cleaner.ValidateNumeric},
	}
	if !reflect.DeepEqual(rs, want) {
		t.Errorf("RuleSet = %#v, want %#v", rs, want)
	}
	if cfg.UnknownColumnPolicy() != cleaner.UnknownColumnFail {
		t.Errorf("UnknownColumnPolicy = %v, want fail", cfg.UnknownColumnPolicy())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	content := `
source:
  type: csv
  file: in.csv
destination:
  type: csv
  file: out.csv
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("logging level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Source.Delimiter != DefaultCSVDelimiter || cfg.Destination.Delimiter != DefaultCSVDelimiter {
		t.Errorf("delimiters = %q/%q, want %q", cfg.Source.Delimiter, cfg.Destination.Delimiter, DefaultCSVDelimiter)
	}
	if cfg.OnUnknownColumn != UnknownColumnSkip {
		t.Errorf("onUnknownColumn = %q, want skip", cfg.OnUnknownColumn)
	}
	if cfg.UnknownColumnPolicy() != cleaner.UnknownColumnSkip {
		t.Errorf("UnknownColumnPolicy = %v, want skip", cfg.UnknownColumnPolicy())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown rule name",
			content: `
source: {type: csv, file: in.csv}
destination: {type: csv, file: out.csv}
rules:
  name: [explode]
`,
			wantErr: "unknown cleaning rule",
		},
		{
			name: "invalid filter expression",
			content: `
source: {type: csv, file: in.csv}
destination: {type: csv, file: out.csv}
filter: "age > "
`,
			wantErr: "invalid filter expression",
		},
		{
			name: "missing source type",
			content: `
source: {file: in.csv}
destination: {type: csv, file: out.csv}
`,
			wantErr: "type is required",
		},
		{
			name: "unsupported destination type",
			content: `
source: {type: csv, file: in.csv}
destination: {type: parquet, file: out.parquet}
`,
			wantErr: "unsupported type",
		},
		{
			name: "db source without table or query",
			content: `
connection: {dsn: "user:pass@tcp(h:3306)/"}
source: {type: mysql, database: etl}
destination: {type: csv, file: out.csv}
`,
			wantErr: "table or query is required",
		},
		{
			name: "driver mismatch",
			content: `
connection: {driver: postgres, dsn: "postgres://u:p@h/db"}
source: {type: mysql, database: etl, table: t}
destination: {type: csv, file: out.csv}
`,
			wantErr: "does not match source type",
		},
		{
			name: "multi-char delimiter",
			content: `
source: {type: csv, file: in.csv, delimiter: ";;"}
destination: {type: csv, file: out.csv}
`,
			wantErr: "delimiter must be a single character",
		},
		{
			name: "bad onUnknownColumn",
			content: `
source: {type: csv, file: in.csv}
destination: {type: csv, file: out.csv}
onUnknownColumn: explode
`,
			wantErr: "onUnknownColumn must be",
		},
		{
			name: "bad log level",
			content: `
logging: {level: loud}
source: {type: csv, file: in.csv}
destination: {type: csv, file: out.csv}
`,
			wantErr: "logging",
		},
		{
			name:    "malformed yaml",
			content: "source: [unclosed",
			wantErr: "failed to parse YAML",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeTempConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadConfigDBWithoutDSN(t *testing.T) {
	// The DSN may arrive later via -db or DB_CREDENTIALS, so a db-typed
	// config without connection.dsn must still load.
	content := `
source:
  type: mysql
  database: etl
  table: employee_data
destination:
  type: mysql
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Connection.DSN != "" {
		t.Errorf("dsn = %q, want empty", cfg.Connection.DSN)
	}
}

func TestLoadConfigTabDelimiterEscape(t *testing.T) {
	content := `
source:
  type: csv
  file: in.tsv
  delimiter: '\t'
destination:
  type: csv
  file: out.csv
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Source.Delimiter != `\t` {
		t.Errorf("delimiter = %q, want the \\t escape", cfg.Source.Delimiter)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
