package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"etl-cleaner/internal/cleaner"
)

// LoadConfig reads, parses, defaults, and validates a YAML config file.
func LoadConfig(filename string) (*Config, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(fileBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	applyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset optional fields before validation.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.OnUnknownColumn == "" {
		cfg.OnUnknownColumn = UnknownColumnSkip
	}
	srcType := strings.ToLower(cfg.Source.Type)
	destType := strings.ToLower(cfg.Destination.Type)
	if srcType == TypeCSV && cfg.Source.Delimiter == "" {
		cfg.Source.Delimiter = DefaultCSVDelimiter
	}
	if destType == TypeCSV && cfg.Destination.Delimiter == "" {
		cfg.Destination.Delimiter = DefaultCSVDelimiter
	}
	if destType == TypeXLSX && cfg.Destination.SheetName == "" {
		cfg.Destination.SheetName = DefaultSheetName
	}
	if isDBType(destType) && cfg.Destination.Table == "" {
		cfg.Destination.Table = DefaultTargetTable
	}
}

// RuleSet converts the configured per-column rule names into the engine's
// RuleSet. Validation has already rejected unknown names, but conversion
// re-checks so a hand-built Config cannot smuggle one through.
func (c *Config) RuleSet() (cleaner.RuleSet, error) {
	rs := make(cleaner.RuleSet, len(c.Rules))
	for column, names := range c.Rules {
		rules := make([]cleaner.Rule, 0, len(names))
		for _, name := range names {
			r, err := cleaner.ParseRule(name)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", column, err)
			}
			rules = append(rules, r)
		}
		rs[column] = rules
	}
	return rs, nil
}

// UnknownColumnPolicy returns the engine policy matching OnUnknownColumn.
func (c *Config) UnknownColumnPolicy() cleaner.UnknownColumnPolicy {
	if c.OnUnknownColumn == UnknownColumnFail {
		return cleaner.UnknownColumnFail
	}
	return cleaner.UnknownColumnSkip
}
