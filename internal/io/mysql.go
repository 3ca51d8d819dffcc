package io

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
	"etl-cleaner/internal/util"
)

// Default timeout for catalog and extraction queries; loads get a longer
// budget in Load itself.
const defaultDBTimeout = 30 * time.Second

// insertBatchSize caps the number of rows per multi-row INSERT so the
// statement stays below MySQL's packet limits.
const insertBatchSize = 500

// sqlOpenFunc allows overriding sql.Open for testing.
var sqlOpenFunc = sql.Open

// mysqlDSNWithDatabase rewrites a MySQL DSN to select the given database.
func mysqlDSNWithDatabase(dsn, database string) (string, error) {
	cfg, err := mysql.ParseDSN(util.ExpandEnvUniversal(dsn))
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN (%s): %w", util.MaskDSN(dsn), err)
	}
	if database != "" {
		cfg.DBName = database
	}
	return cfg.FormatDSN(), nil
}

// quoteMySQLIdent wraps an identifier in backticks, escaping embedded ones.
func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// splitQualifiedTable splits an optionally schema-qualified table name.
func splitQualifiedTable(name string) (schema, table string) {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// MySQLCatalog implements Catalog over a MySQL server connection.
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog connects to the server described by dsn (no database
// selected) and verifies the connection.
func NewMySQLCatalog(ctx context.Context, dsn string) (*MySQLCatalog, error) {
	expanded, err := mysqlDSNWithDatabase(dsn, "")
	if err != nil {
		return nil, err
	}
	db, err := sqlOpenFunc("mysql", expanded)
	if err != nil {
		return nil, fmt.Errorf("MySQLCatalog failed to open connection (%s): %w", util.MaskDSN(expanded), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("MySQLCatalog failed to reach server (%s): %w", util.MaskDSN(expanded), err)
	}
	return &MySQLCatalog{db: db}, nil
}

// ListDatabases returns the schemas visible to the connection.
func (c *MySQLCatalog) ListDatabases(ctx context.Context) ([]string, error) {
	return c.queryStrings(ctx, "SHOW DATABASES")
}

// ListTables returns the tables of one database.
func (c *MySQLCatalog) ListTables(ctx context.Context, database string) ([]string, error) {
	if database == "" {
		return nil, fmt.Errorf("MySQLCatalog: database name is required")
	}
	return c.queryStrings(ctx, "SHOW TABLES FROM "+quoteMySQLIdent(database))
}

// Close releases the connection.
func (c *MySQLCatalog) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *MySQLCatalog) queryStrings(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("MySQLCatalog query '%s' failed: %w", query, err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("MySQLCatalog failed to scan result of '%s': %w", query, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MySQLCatalog error iterating results of '%s': %w", query, err)
	}
	return names, nil
}

// MySQLExtractor implements Extractor for a MySQL table or query.
type MySQLExtractor struct {
	dsn      string
	database string
	query    string
}

// NewMySQLExtractor builds an extractor for a whole table or, when query
// is non-empty, an explicit SQL statement.
func NewMySQLExtractor(dsn, database, table, query string) *MySQLExtractor {
	if query == "" {
		query = "SELECT * FROM " + quoteMySQLIdent(table)
	}
	return &MySQLExtractor{dsn: dsn, database: database, query: query}
}

// Extract runs the query and materializes the full result as a dataset.
// Byte-slice cells are converted to strings so downstream rules see text.
func (e *MySQLExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	logging.Logf(logging.Debug, "MySQLExtractor reading data using query: %s", e.query)
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout*2)
	defer cancel()

	expanded, err := mysqlDSNWithDatabase(e.dsn, e.database)
	if err != nil {
		return nil, err
	}
	db, err := sqlOpenFunc("mysql", expanded)
	if err != nil {
		return nil, fmt.Errorf("MySQLExtractor failed to open connection (%s): %w", util.MaskDSN(expanded), err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, e.query)
	if err != nil {
		return nil, fmt.Errorf("MySQLExtractor failed to execute query '%s': %w", e.query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("MySQLExtractor failed to read column names: %w", err)
	}
	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("MySQLExtractor: %w", err)
	}

	values := make([]interface{}, len(columns))
	scanTargets := make([]interface{}, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("MySQLExtractor failed to scan row: %w", err)
		}
		rowValues := make([]interface{}, len(columns))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				rowValues[i] = string(b)
			} else {
				rowValues[i] = v
			}
		}
		if err := ds.AppendRow(rowValues...); err != nil {
			return nil, fmt.Errorf("MySQLExtractor: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MySQLExtractor error during row iteration: %w", err)
	}

	logging.Logf(logging.Info, "MySQLExtractor loaded %d rows, %d columns.", ds.NumRows(), ds.NumColumns())
	return ds, nil
}

// MySQLLoader implements Loader for a MySQL destination table. Loading
// replaces the table wholesale: drop, recreate from the dataset's shape,
// insert all rows.
type MySQLLoader struct {
	dsn   string
	table string
}

// NewMySQLLoader builds a loader for an optionally schema-qualified table.
func NewMySQLLoader(dsn, table string) *MySQLLoader {
	return &MySQLLoader{dsn: dsn, table: table}
}

// Load replaces the destination table's contents with ds.
func (l *MySQLLoader) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.NumColumns() == 0 {
		return fmt.Errorf("MySQLLoader: dataset has no columns")
	}
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout*10)
	defer cancel()

	schema, table := splitQualifiedTable(l.table)
	expanded, err := mysqlDSNWithDatabase(l.dsn, schema)
	if err != nil {
		return err
	}
	db, err := sqlOpenFunc("mysql", expanded)
	if err != nil {
		return fmt.Errorf("MySQLLoader failed to open connection (%s): %w", util.MaskDSN(expanded), err)
	}
	defer db.Close()

	qualified := quoteMySQLIdent(table)
	if schema != "" {
		qualified = quoteMySQLIdent(schema) + "." + qualified
	}

	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qualified); err != nil {
		return fmt.Errorf("MySQLLoader failed to drop existing table %s: %w", l.table, err)
	}
	if _, err := db.ExecContext(ctx, createTableDDL(qualified, ds)); err != nil {
		return fmt.Errorf("MySQLLoader failed to create table %s: %w", l.table, err)
	}

	if ds.NumRows() == 0 {
		logging.Logf(logging.Info, "MySQLLoader: created empty table %s (dataset has no rows).", l.table)
		return nil
	}

	columns := ds.Columns()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteMySQLIdent(c)
	}
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	inserted := 0
	for start := 0; start < ds.NumRows(); start += insertBatchSize {
		end := start + insertBatchSize
		if end > ds.NumRows() {
			end = ds.NumRows()
		}
		placeholders := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(columns))
		for r := start; r < end; r++ {
			placeholders = append(placeholders, rowPlaceholder)
			args = append(args, ds.Row(r)...)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			qualified, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("MySQLLoader failed inserting rows %d-%d into %s: %w", start, end-1, l.table, err)
		}
		inserted = end
	}

	logging.Logf(logging.Info, "MySQLLoader replaced %s with %d rows.", l.table, inserted)
	return nil
}

// createTableDDL builds the CREATE TABLE statement for a dataset. Column
// types are inferred from the cell variants: all-integral numerics become
// BIGINT, other numerics DOUBLE, everything else TEXT. Nulls don't vote.
func createTableDDL(qualifiedTable string, ds *dataset.Dataset) string {
	defs := make([]string, 0, ds.NumColumns())
	for ci, col := range ds.Columns() {
		defs = append(defs, quoteMySQLIdent(col)+" "+inferColumnType(ds, ci))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", qualifiedTable, strings.Join(defs, ", "))
}

func inferColumnType(ds *dataset.Dataset, col int) string {
	sawValue := false
	integral := true
	for r := 0; r < ds.NumRows(); r++ {
		v := ds.Value(r, col)
		switch dataset.KindOf(v) {
		case dataset.Null:
			continue
		case dataset.Numeric:
			sawValue = true
			if f, ok := dataset.NumericOf(v); !ok || f != math.Trunc(f) {
				integral = false
			}
		default:
			return "TEXT"
		}
	}
	if !sawValue {
		return "TEXT"
	}
	if integral {
		return "BIGINT"
	}
	return "DOUBLE"
}
