package io

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
	"etl-cleaner/internal/util"
)

// pgxConnectFunc and pgxPoolNewFunc allow overriding connections for testing.
var (
	pgxConnectFunc = pgx.Connect
	pgxPoolNewFunc = pgxpool.New
)

// PostgresExtractor implements Extractor for a PostgreSQL table or query.
type PostgresExtractor struct {
	dsn   string
	query string
}

// NewPostgresExtractor builds an extractor for a whole table or, when
// query is non-empty, an explicit SQL statement.
func NewPostgresExtractor(dsn, table, query string) *PostgresExtractor {
	if query == "" {
		query = "SELECT * FROM " + quotePostgresQualified(table)
	}
	return &PostgresExtractor{dsn: dsn, query: query}
}

// quotePostgresQualified quotes an optionally schema-qualified identifier.
func quotePostgresQualified(name string) string {
	schema, table := splitQualifiedTable(name)
	if schema != "" {
		return pgx.Identifier{schema, table}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// Extract runs the query and materializes the full result as a dataset.
func (e *PostgresExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	logging.Logf(logging.Debug, "PostgresExtractor reading data using query: %s", e.query)
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout*2)
	defer cancel()

	expandedDSN := util.ExpandEnvUniversal(e.dsn)
	conn, err := pgxConnectFunc(ctx, expandedDSN)
	if err != nil {
		return nil, fmt.Errorf("PostgresExtractor failed to connect (%s): %w", util.MaskDSN(expandedDSN), err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, e.query)
	if err != nil {
		return nil, fmt.Errorf("PostgresExtractor failed to execute query '%s': %w", e.query, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = string(fd.Name)
	}
	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("PostgresExtractor: %w", err)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("PostgresExtractor failed to scan row values: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := ds.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("PostgresExtractor: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresExtractor error during row iteration: %w", err)
	}

	logging.Logf(logging.Info, "PostgresExtractor loaded %d rows, %d columns.", ds.NumRows(), ds.NumColumns())
	return ds, nil
}

// PostgresLoader implements Loader for a PostgreSQL destination table. The
// table is truncated and repopulated with COPY, so one load replaces the
// previous contents in full.
type PostgresLoader struct {
	dsn   string
	table string
}

// NewPostgresLoader builds a loader for an optionally schema-qualified
// table. The table must already exist with a compatible shape.
func NewPostgresLoader(dsn, table string) *PostgresLoader {
	return &PostgresLoader{dsn: dsn, table: table}
}

// Load replaces the destination table's contents with ds.
func (l *PostgresLoader) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.NumColumns() == 0 {
		return fmt.Errorf("PostgresLoader: dataset has no columns")
	}
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout*10)
	defer cancel()

	expandedDSN := util.ExpandEnvUniversal(l.dsn)
	pool, err := pgxPoolNewFunc(ctx, expandedDSN)
	if err != nil {
		return fmt.Errorf("PostgresLoader failed to create connection pool (%s): %w", util.MaskDSN(expandedDSN), err)
	}
	defer pool.Close()

	schema, table := splitQualifiedTable(l.table)
	var ident pgx.Identifier
	if schema != "" {
		ident = pgx.Identifier{schema, table}
	} else {
		ident = pgx.Identifier{table}
	}

	columns := ds.Columns()
	copyData := make([][]interface{}, ds.NumRows())
	for r := range copyData {
		copyData[r] = ds.Row(r)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("PostgresLoader failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logging.Logf(logging.Error, "PostgresLoader failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ident.Sanitize()); err != nil {
		return fmt.Errorf("PostgresLoader failed to truncate %s: %w", l.table, err)
	}

	copied, err := tx.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(copyData))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			logging.Logf(logging.Error, "PostgresLoader COPY failed for %s. Code: %s, Message: %s, Detail: %s",
				l.table, pgErr.Code, pgErr.Message, pgErr.Detail)
		}
		return fmt.Errorf("PostgresLoader COPY failed for %s: %w", l.table, err)
	}
	if copied != int64(ds.NumRows()) {
		logging.Logf(logging.Warning, "PostgresLoader: expected to copy %d rows to %s, driver reported %d.",
			ds.NumRows(), l.table, copied)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("PostgresLoader failed to commit transaction: %w", err)
	}
	committed = true

	logging.Logf(logging.Info, "PostgresLoader replaced %s with %d rows.", l.table, copied)
	return nil
}
