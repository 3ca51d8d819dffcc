package config

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"etl-cleaner/internal/cleaner"
	"etl-cleaner/internal/logging"
)

// isDBType reports whether a source/destination type talks to a database.
func isDBType(t string) bool {
	switch strings.ToLower(t) {
	case TypeMySQL, TypePostgres:
		return true
	}
	return false
}

// isValidCSVDelimiter accepts a single character or the "\t" escape, the
// same forms the csv adapter accepts.
func isValidCSVDelimiter(d string) bool {
	if d == "\\t" {
		return true
	}
	return len([]rune(d)) == 1
}

// isFileType reports whether a source/destination type reads/writes files.
func isFileType(t string) bool {
	switch strings.ToLower(t) {
	case TypeCSV, TypeXLSX, TypeJSON:
		return true
	}
	return false
}

// ValidateConfig checks structural consistency of a loaded configuration.
// It reports the first problem found; callers surface it verbatim.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config validation: configuration is nil")
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("config validation: logging: %w", err)
	}

	if err := validateSource(&cfg.Source, &cfg.Connection); err != nil {
		return fmt.Errorf("config validation: source: %w", err)
	}
	if err := validateDestination(&cfg.Destination); err != nil {
		return fmt.Errorf("config validation: destination: %w", err)
	}

	switch cfg.OnUnknownColumn {
	case UnknownColumnSkip, UnknownColumnFail:
	default:
		return fmt.Errorf("config validation: onUnknownColumn must be %q or %q, got %q",
			UnknownColumnSkip, UnknownColumnFail, cfg.OnUnknownColumn)
	}

	for column, names := range cfg.Rules {
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("config validation: rules contain an empty column name")
		}
		for _, name := range names {
			if _, err := cleaner.ParseRule(name); err != nil {
				return fmt.Errorf("config validation: rules for column %q: %w (known rules: %v)",
					column, err, cleaner.KnownRules())
			}
		}
	}

	if cfg.Filter != "" {
		if _, err := govaluate.NewEvaluableExpression(cfg.Filter); err != nil {
			return fmt.Errorf("config validation: invalid filter expression %q: %w", cfg.Filter, err)
		}
	}

	return nil
}

func validateSource(src *SourceConfig, conn *ConnectionConfig) error {
	t := strings.ToLower(src.Type)
	switch {
	case t == "":
		return fmt.Errorf("type is required")
	case isDBType(t):
		// The DSN may also arrive via -db or DB_CREDENTIALS, which are
		// resolved after loading; its presence is checked when the adapter
		// is built.
		if conn.Driver != "" && strings.ToLower(conn.Driver) != t {
			return fmt.Errorf("connection.driver '%s' does not match source type '%s'", conn.Driver, t)
		}
		if src.Table == "" && src.Query == "" {
			return fmt.Errorf("table or query is required for type '%s'", t)
		}
	case isFileType(t):
		if src.File == "" {
			return fmt.Errorf("file is required for type '%s'", t)
		}
		if t == TypeCSV && !isValidCSVDelimiter(src.Delimiter) {
			return fmt.Errorf("delimiter must be a single character, got %q", src.Delimiter)
		}
	default:
		return fmt.Errorf("unsupported type '%s'", src.Type)
	}
	return nil
}

func validateDestination(dest *DestinationConfig) error {
	t := strings.ToLower(dest.Type)
	switch {
	case t == "":
		return fmt.Errorf("type is required")
	case isDBType(t):
		if dest.Table == "" {
			return fmt.Errorf("table is required for type '%s'", t)
		}
	case isFileType(t):
		if dest.File == "" {
			return fmt.Errorf("file is required for type '%s'", t)
		}
		if t == TypeCSV && !isValidCSVDelimiter(dest.Delimiter) {
			return fmt.Errorf("delimiter must be a single character, got %q", dest.Delimiter)
		}
	default:
		return fmt.Errorf("unsupported type '%s'", dest.Type)
	}
	return nil
}
