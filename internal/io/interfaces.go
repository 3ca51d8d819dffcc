package io

import (
	"context"

	"etl-cleaner/internal/dataset"
)

// Extractor produces a fully materialized dataset from its configured
// source (a database table/query or a file).
type Extractor interface {
	Extract(ctx context.Context) (*dataset.Dataset, error)
}

// Loader persists a dataset to its configured destination, replacing the
// destination's previous contents wholesale.
type Loader interface {
	Load(ctx context.Context, ds *dataset.Dataset) error
}

// Catalog lists what a database server offers, backing the discovery
// commands of the shell.
type Catalog interface {
	// ListDatabases returns the schemas visible to the connection.
	ListDatabases(ctx context.Context) ([]string, error)
	// ListTables returns the tables of one database.
	ListTables(ctx context.Context, database string) ([]string, error)
	// Close releases the underlying connection. Idempotent.
	Close() error
}
