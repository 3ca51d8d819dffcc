package config

// Source and destination type identifiers.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeCSV      = "csv"
	TypeXLSX     = "xlsx"
	TypeJSON     = "json"
)

// Unknown-column policies for rule entries referencing columns the
// extracted dataset does not have.
const (
	UnknownColumnSkip = "skip"
	UnknownColumnFail = "fail"
)

const (
	DefaultLogLevel     = "info"
	DefaultCSVDelimiter = ","
	DefaultSheetName    = "Sheet1"
	// DefaultTargetTable is where cleaned rows land when the destination
	// table is not configured explicitly.
	DefaultTargetTable = "etl.cleaned_employee_data"
)

// Config is the root structure of the YAML configuration file.
type Config struct {
	// Logging sets the verbosity level ("none".."debug", default "info").
	Logging LoggingConfig `yaml:"logging"`
	// Connection describes the database server used by db-typed sources
	// and destinations. Ignored when both sides are file-based.
	Connection ConnectionConfig `yaml:"connection"`
	// Source describes where the raw dataset is extracted from.
	Source SourceConfig `yaml:"source"`
	// Destination describes where the cleaned dataset is loaded.
	Destination DestinationConfig `yaml:"destination"`
	// Filter is an optional govaluate expression evaluated per row before
	// cleaning; rows evaluating to false are dropped.
	// Example: "age > 0 && status == 'active'"
	Filter string `yaml:"filter,omitempty"`
	// Rules maps a column name to the ordered list of cleaning rules
	// applied to it. Valid rule names: drop_duplicates, remove_nulls,
	// validate_string, validate_length, validate_numeric.
	Rules map[string][]string `yaml:"rules"`
	// OnUnknownColumn decides what happens when Rules references a column
	// the extracted dataset lacks: "skip" (default) or "fail".
	OnUnknownColumn string `yaml:"onUnknownColumn,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ConnectionConfig identifies the database server. The DSN may reference
// environment variables ($VAR, ${VAR}, %VAR%) which are expanded at use.
type ConnectionConfig struct {
	// Driver is "mysql" or "postgres".
	Driver string `yaml:"driver,omitempty"`
	// DSN is the driver-specific connection string. For mysql it must not
	// embed a database name; the source database is selected per query.
	DSN string `yaml:"dsn,omitempty"`
}

// SourceConfig describes the extraction source.
type SourceConfig struct {
	// Type is one of: mysql, postgres, csv, xlsx, json. Required.
	Type string `yaml:"type"`
	// Database selects the schema for mysql sources.
	Database string `yaml:"database,omitempty"`
	// Table is the table extracted wholesale (SELECT *). Either Table or
	// Query is required for db sources.
	Table string `yaml:"table,omitempty"`
	// Query overrides Table with an explicit SQL statement.
	Query string `yaml:"query,omitempty"`
	// File is the input path for csv/xlsx/json sources. Env-expanded.
	File string `yaml:"file,omitempty"`
	// Delimiter is the csv field separator (default ",").
	Delimiter string `yaml:"delimiter,omitempty"`
	// SheetName selects the xlsx sheet (default: active sheet).
	SheetName string `yaml:"sheetName,omitempty"`
}

// DestinationConfig describes the load destination. Loading is a full
// replace of the destination's contents.
type DestinationConfig struct {
	// Type is one of: mysql, postgres, csv, xlsx, json. Required.
	Type string `yaml:"type"`
	// Table is the destination table for db types, optionally
	// schema-qualified ("etl.cleaned_employee_data").
	Table string `yaml:"table,omitempty"`
	// File is the output path for csv/xlsx/json types. Env-expanded.
	File string `yaml:"file,omitempty"`
	// Delimiter is the csv field separator (default ",").
	Delimiter string `yaml:"delimiter,omitempty"`
	// SheetName is the xlsx sheet written (default "Sheet1").
	SheetName string `yaml:"sheetName,omitempty"`
}
