// Package io provides the extraction and load adapters surrounding the
// cleaning engine: database adapters (MySQL, PostgreSQL) and file adapters
// (CSV, XLSX, JSON), plus the catalog used for schema/table discovery.
package io

import (
	"context"
	"fmt"
	"strings"

	"etl-cleaner/internal/config"
	"etl-cleaner/internal/logging"
)

// NewExtractor creates the Extractor matching the source configuration.
// pathOverride, when non-empty, replaces the configured file path.
func NewExtractor(cfg config.SourceConfig, dsn, pathOverride string) (Extractor, error) {
	sourceType := strings.ToLower(cfg.Type)
	logging.Logf(logging.Debug, "Creating extractor for type: %s", sourceType)

	path := cfg.File
	if pathOverride != "" {
		path = pathOverride
	}

	switch sourceType {
	case config.TypeMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("database connection string is required for source type 'mysql'")
		}
		// The database may arrive from config or a flag override; by the
		// time an extractor is built one of database/query must be present.
		if cfg.Database == "" && cfg.Query == "" {
			return nil, fmt.Errorf("a database is required for source type 'mysql' (set source.database or -database)")
		}
		return NewMySQLExtractor(dsn, cfg.Database, cfg.Table, cfg.Query), nil
	case config.TypePostgres:
		if dsn == "" {
			return nil, fmt.Errorf("database connection string is required for source type 'postgres'")
		}
		return NewPostgresExtractor(dsn, cfg.Table, cfg.Query), nil
	case config.TypeCSV:
		return NewCSVExtractor(path, cfg.Delimiter)
	case config.TypeXLSX:
		return NewXLSXExtractor(path, cfg.SheetName), nil
	case config.TypeJSON:
		return NewJSONExtractor(path), nil
	default:
		return nil, fmt.Errorf("unsupported source type '%s'", cfg.Type)
	}
}

// NewLoader creates the Loader matching the destination configuration.
// pathOverride, when non-empty, replaces the configured file path.
func NewLoader(cfg config.DestinationConfig, dsn, pathOverride string) (Loader, error) {
	destType := strings.ToLower(cfg.Type)
	logging.Logf(logging.Debug, "Creating loader for type: %s", destType)

	path := cfg.File
	if pathOverride != "" {
		path = pathOverride
	}

	switch destType {
	case config.TypeMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("database connection string is required for destination type 'mysql'")
		}
		return NewMySQLLoader(dsn, cfg.Table), nil
	case config.TypePostgres:
		if dsn == "" {
			return nil, fmt.Errorf("database connection string is required for destination type 'postgres'")
		}
		return NewPostgresLoader(dsn, cfg.Table), nil
	case config.TypeCSV:
		return NewCSVLoader(path, cfg.Delimiter)
	case config.TypeXLSX:
		return NewXLSXLoader(path, cfg.SheetName), nil
	case config.TypeJSON:
		return NewJSONLoader(path), nil
	default:
		return nil, fmt.Errorf("unsupported destination type '%s'", cfg.Type)
	}
}

// NewCatalog creates the Catalog for a database driver. Only MySQL exposes
// SHOW DATABASES / SHOW TABLES style discovery.
func NewCatalog(ctx context.Context, driver, dsn string) (Catalog, error) {
	switch strings.ToLower(driver) {
	case config.TypeMySQL, "":
		if dsn == "" {
			return nil, fmt.Errorf("database connection string is required for catalog discovery")
		}
		return NewMySQLCatalog(ctx, dsn)
	default:
		return nil, fmt.Errorf("catalog discovery is not supported for driver '%s'", driver)
	}
}
