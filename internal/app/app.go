// Package app wires the pipeline together: flag parsing, configuration,
// discovery commands, and the extract -> filter -> clean -> load sequence.
// All session state lives in an explicit pipeline value passed stage to
// stage; there is no ambient store.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Knetic/govaluate"

	"etl-cleaner/internal/cleaner"
	"etl-cleaner/internal/config"
	"etl-cleaner/internal/dataset"
	etlio "etl-cleaner/internal/io"
	"etl-cleaner/internal/logging"
	"etl-cleaner/internal/util"
)

// Common application-level errors.
var (
	ErrUsage          = errors.New("usage error")
	ErrConfigNotFound = errors.New("configuration file not found")
)

// expressionEvaluator abstracts govaluate so the filter stage can be
// tested with a stub.
type expressionEvaluator interface {
	Evaluate(map[string]interface{}) (interface{}, error)
}

// Factory variables; tests replace these to avoid touching real databases.
var (
	newExtractorFunc = etlio.NewExtractor
	newLoaderFunc    = etlio.NewLoader
	newCatalogFunc   = etlio.NewCatalog

	newExpressionEvaluatorFunc = func(expr string) (expressionEvaluator, error) {
		return govaluate.NewEvaluableExpression(expr)
	}

	osStatFunc = os.Stat
)

// AppRunner encapsulates the application's execution logic.
type AppRunner struct{}

// NewAppRunner creates a new application runner.
func NewAppRunner() *AppRunner {
	return &AppRunner{}
}

const usageText = `Usage:
  etl-cleaner [options]

Options:
  -config string
        YAML configuration file (default "config/etl-clean.yaml")
  -db string
        Database connection string (overrides config and DB_CREDENTIALS)
  -database string
        Override the source database name from config
  -table string
        Override the source table name from config
  -input string
        Override input file path from config (file sources only)
  -output string
        Override output file path from config (file destinations only)
  -list-databases
        List databases visible to the connection and exit
  -list-tables
        List tables of the selected database and exit
  -strict
        Fail when rules reference columns missing from the dataset
  -dry-run
        Perform all steps except loading the destination
  -loglevel string
        Logging level (none, error, warn, info, debug) (default "info")
  -help
        Show help

Environment Variables:
  DB_CREDENTIALS   Connection string used when -db and config dsn are unset
  Any VAR          Usable in config paths/DSNs via $VAR/${VAR} or %VAR%

Examples:
  etl-cleaner -config=etl-clean.yaml -loglevel=debug
  etl-cleaner -config=etl-clean.yaml -db="user:pass@tcp(localhost:3306)/" -list-databases
  etl-cleaner -config=etl-clean.yaml -database=etl -table=employee_data -dry-run
`

// Usage prints command-line help to the writer.
func (a *AppRunner) Usage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// pipeline carries everything one run needs between stages.
type pipeline struct {
	cfg     *config.Config
	dsn     string
	input   string
	output  string
	rules   cleaner.RuleSet
	options cleaner.Options
	dryRun  bool
}

// Run parses arguments and executes the requested workflow.
func (a *AppRunner) Run(args []string) error {
	fs := flag.NewFlagSet("etl-cleaner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "config/etl-clean.yaml", "YAML configuration file")
	dbConnStr := fs.String("db", "", "Database connection string")
	databaseFlag := fs.String("database", "", "Override source database")
	tableFlag := fs.String("table", "", "Override source table")
	inputFlag := fs.String("input", "", "Override input file path")
	outputFlag := fs.String("output", "", "Override output file path")
	listDatabases := fs.Bool("list-databases", false, "List databases and exit")
	listTables := fs.Bool("list-tables", false, "List tables and exit")
	strictFlag := fs.Bool("strict", false, "Fail on rules for unknown columns")
	dryRunFlag := fs.Bool("dry-run", false, "Perform dry run")
	logLevelStr := fs.String("loglevel", "info", "Logging level")
	helpFlag := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.Usage(os.Stderr)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *helpFlag {
		a.Usage(os.Stderr)
		return nil
	}

	logging.SetupLogging(*logLevelStr)

	if _, err := osStatFunc(*configFile); err != nil {
		if os.IsNotExist(err) {
			logging.Logf(logging.Error, "Config file '%s' not found.", *configFile)
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to stat config file '%s': %w", *configFile, err)
	}
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if !isFlagSet(fs, "loglevel") && cfg.Logging.Level != "" {
		logging.SetupLogging(cfg.Logging.Level)
	}

	// Resolve the connection string: flag, then config, then environment.
	dsn := *dbConnStr
	if dsn == "" {
		dsn = cfg.Connection.DSN
	}
	if dsn == "" {
		dsn = os.Getenv("DB_CREDENTIALS")
	}
	dsn = util.ExpandEnvUniversal(dsn)

	if *databaseFlag != "" {
		cfg.Source.Database = *databaseFlag
	}
	if *tableFlag != "" {
		cfg.Source.Table = *tableFlag
		cfg.Source.Query = ""
	}

	ctx := context.Background()

	if *listDatabases || *listTables {
		return a.runDiscovery(ctx, cfg, dsn, *listTables)
	}

	rules, err := cfg.RuleSet()
	if err != nil {
		return fmt.Errorf("invalid rule configuration: %w", err)
	}
	opts := cleaner.Options{UnknownColumns: cfg.UnknownColumnPolicy()}
	if *strictFlag {
		opts.UnknownColumns = cleaner.UnknownColumnFail
	}

	p := &pipeline{
		cfg:     cfg,
		dsn:     dsn,
		input:   util.ExpandEnvUniversal(*inputFlag),
		output:  util.ExpandEnvUniversal(*outputFlag),
		rules:   rules,
		options: opts,
		dryRun:  *dryRunFlag,
	}
	return a.runPipeline(ctx, p)
}

// runDiscovery services -list-databases / -list-tables and exits.
func (a *AppRunner) runDiscovery(ctx context.Context, cfg *config.Config, dsn string, tables bool) error {
	catalog, err := newCatalogFunc(ctx, cfg.Connection.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if cerr := catalog.Close(); cerr != nil {
			logging.Logf(logging.Error, "Failed to close catalog: %v", cerr)
		}
	}()

	if tables {
		database := cfg.Source.Database
		if database == "" {
			return fmt.Errorf("a database is required to list tables (set source.database or -database)")
		}
		names, err := catalog.ListTables(ctx, database)
		if err != nil {
			return fmt.Errorf("failed to list tables of '%s': %w", database, err)
		}
		if len(names) == 0 {
			logging.Logf(logging.Warning, "No tables found in database '%s'.", database)
			return nil
		}
		fmt.Println(strings.Join(names, "\n"))
		return nil
	}

	names, err := catalog.ListDatabases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}
	if len(names) == 0 {
		logging.Logf(logging.Warning, "No databases visible to this connection.")
		return nil
	}
	fmt.Println(strings.Join(names, "\n"))
	return nil
}

// runPipeline executes extract -> filter -> clean -> load.
func (a *AppRunner) runPipeline(ctx context.Context, p *pipeline) error {
	extractor, err := newExtractorFunc(p.cfg.Source, p.dsn, p.input)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}
	loader, err := newLoaderFunc(p.cfg.Destination, p.dsn, p.output)
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	logging.Logf(logging.Info, "Extracting from %s...", p.cfg.Source.Type)
	raw, err := extractor.Extract(ctx)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	logging.Logf(logging.Info, "Extracted %d rows, %d columns.", raw.NumRows(), raw.NumColumns())

	filtered, err := a.applyFilter(raw, p.cfg.Filter)
	if err != nil {
		return err
	}

	logging.Logf(logging.Info, "Cleaning %d rows...", filtered.NumRows())
	cleaned, err := cleaner.Clean(filtered, p.rules, p.options)
	if err != nil {
		return fmt.Errorf("cleaning failed: %w", err)
	}
	logging.Logf(logging.Info, "Cleaning kept %d of %d rows.", cleaned.NumRows(), filtered.NumRows())

	if p.dryRun {
		logging.Logf(logging.Info, "DRY RUN: skipping load. Would write %d rows to %s.",
			cleaned.NumRows(), p.cfg.Destination.Type)
		sample := cleaned.NumRows()
		if sample > 5 {
			sample = 5
		}
		for i := 0; i < sample; i++ {
			logging.Logf(logging.Debug, "Row %d: %v", i, util.MaskSensitiveData(cleaned.RowMap(i)))
		}
		return nil
	}

	logging.Logf(logging.Info, "Loading %d rows to %s...", cleaned.NumRows(), p.cfg.Destination.Type)
	if err := loader.Load(ctx, cleaned); err != nil {
		return fmt.Errorf("loading failed: %w", err)
	}
	logging.Logf(logging.Info, "Data loaded successfully.")
	return nil
}

// applyFilter drops rows for which the configured expression is not true.
// An evaluation error or a non-boolean result aborts the run; a silently
// wrong filter is worse than a loud one.
func (a *AppRunner) applyFilter(ds *dataset.Dataset, filter string) (*dataset.Dataset, error) {
	if filter == "" {
		return ds, nil
	}
	logging.Logf(logging.Info, "Applying filter: %s", filter)
	evaluator, err := newExpressionEvaluatorFunc(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression '%s': %w", filter, err)
	}

	var evalErr error
	kept := ds.Filter(func(row int) bool {
		if evalErr != nil {
			return false
		}
		result, err := evaluator.Evaluate(ds.RowMap(row))
		if err != nil {
			evalErr = fmt.Errorf("filter failed on row %d: %w", row, err)
			return false
		}
		keep, isBool := result.(bool)
		if !isBool {
			evalErr = fmt.Errorf("filter returned non-boolean %T on row %d", result, row)
			return false
		}
		return keep
	})
	if evalErr != nil {
		return nil, evalErr
	}
	logging.Logf(logging.Info, "Filter kept %d of %d rows.", kept.NumRows(), ds.NumRows())
	return kept, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
