// Package cleaner implements the data-cleaning engine: it applies an
// ordered, per-column set of cleaning rules to a dataset and regenerates
// the synthetic id column. Each run is a pure function of its inputs; the
// input dataset is never modified.
package cleaner

import (
	"fmt"
	"sort"
	"strings"

	"etl-cleaner/internal/dataset"
	"etl-cleaner/internal/logging"
)

// Rule identifies one named cleaning operation scoped to a single column.
type Rule string

const (
	// DropDuplicates keeps the first row per distinct value in the column.
	DropDuplicates Rule = "drop_duplicates"
	// RemoveNulls drops rows whose value in the column is null.
	RemoveNulls Rule = "remove_nulls"
	// ValidateString drops rows whose textual value is empty after trimming.
	ValidateString Rule = "validate_string"
	// ValidateLength drops rows whose textual value is shorter than 3 runes.
	ValidateLength Rule = "validate_length"
	// ValidateNumeric drops rows whose value does not coerce to a number.
	ValidateNumeric Rule = "validate_numeric"
)

// MinTextLength is the inclusive keep threshold used by ValidateLength.
const MinTextLength = 3

// IDColumn is the synthetic identity column regenerated after cleaning.
const IDColumn = "id"

// KnownRules lists every rule identifier in a stable order, for validation
// and help output.
func KnownRules() []Rule {
	return []Rule{DropDuplicates, RemoveNulls, ValidateString, ValidateLength, ValidateNumeric}
}

// ParseRule converts a configured rule name into a Rule.
func ParseRule(s string) (Rule, error) {
	r := Rule(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case DropDuplicates, RemoveNulls, ValidateString, ValidateLength, ValidateNumeric:
		return r, nil
	}
	return "", fmt.Errorf("unknown cleaning rule %q", s)
}

// RuleSet maps a column name to the ordered rules applied to it. A ruleset
// is built once per invocation and not modified during a run.
type RuleSet map[string][]Rule

// UnknownColumnPolicy controls how rules referencing columns absent from
// the dataset are handled.
type UnknownColumnPolicy string

const (
	// UnknownColumnSkip silently ignores such entries. This preserves the
	// tolerant behavior of partial configurations and is the default.
	UnknownColumnSkip UnknownColumnPolicy = "skip"
	// UnknownColumnFail aborts the run on the first such entry.
	UnknownColumnFail UnknownColumnPolicy = "fail"
)

// Options tune engine policy decisions that change observable behavior.
type Options struct {
	UnknownColumns UnknownColumnPolicy
}

// Clean applies rules to ds and returns a new dataset with the id column
// regenerated as 1..n. Columns are processed in dataset order and each
// column's rules in listed order; every rule filters the cumulative state
// left by the rules before it. On any structural failure the whole call
// fails and no partial result is returned.
func Clean(ds *dataset.Dataset, rules RuleSet, opts Options) (*dataset.Dataset, error) {
	if ds == nil {
		return nil, fmt.Errorf("cleaner: dataset is nil")
	}
	if opts.UnknownColumns == "" {
		opts.UnknownColumns = UnknownColumnSkip
	}

	// Sorted so the failing column and the warning order are stable.
	ruleColumns := make([]string, 0, len(rules))
	for col := range rules {
		ruleColumns = append(ruleColumns, col)
	}
	sort.Strings(ruleColumns)
	for _, col := range ruleColumns {
		if ds.HasColumn(col) {
			continue
		}
		if opts.UnknownColumns == UnknownColumnFail {
			return nil, fmt.Errorf("cleaner: rules reference column %q not present in dataset", col)
		}
		logging.Logf(logging.Warning, "Cleaner: column %q not in dataset; skipping its %d rule(s).", col, len(rules[col]))
	}

	current := ds
	for _, col := range ds.Columns() {
		colRules, configured := rules[col]
		if !configured || len(colRules) == 0 {
			continue
		}
		for _, rule := range colRules {
			before := current.NumRows()
			next, err := applyRule(current, col, rule)
			if err != nil {
				return nil, fmt.Errorf("cleaner: rule %s on column %q: %w", rule, col, err)
			}
			if dropped := before - next.NumRows(); dropped > 0 {
				logging.Logf(logging.Debug, "Cleaner: %s on %q dropped %d of %d rows.", rule, col, dropped, before)
			}
			current = next
		}
	}

	return withIDColumn(current)
}

// applyRule runs one rule against one column, returning the filtered
// dataset. Rule behavior is defined per value variant; a coercion failure
// drops the row and is never an error.
func applyRule(ds *dataset.Dataset, col string, rule Rule) (*dataset.Dataset, error) {
	ci := ds.ColumnIndex(col)
	if ci < 0 {
		// Column presence was checked up front; reaching this means the
		// dataset shape changed mid-run.
		return nil, fmt.Errorf("column vanished during cleaning")
	}

	switch rule {
	case DropDuplicates:
		seen := make(map[string]struct{}, ds.NumRows())
		return ds.Filter(func(row int) bool {
			key := dataset.KeyOf(ds.Value(row, ci))
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
			return true
		}), nil

	case RemoveNulls:
		return ds.Filter(func(row int) bool {
			return dataset.KindOf(ds.Value(row, ci)) != dataset.Null
		}), nil

	case ValidateString:
		return ds.Filter(func(row int) bool {
			return strings.TrimSpace(dataset.TextOf(ds.Value(row, ci))) != ""
		}), nil

	case ValidateLength:
		return ds.Filter(func(row int) bool {
			return dataset.TextLen(ds.Value(row, ci)) >= MinTextLength
		}), nil

	case ValidateNumeric:
		return ds.Filter(func(row int) bool {
			_, ok := dataset.NumericOf(ds.Value(row, ci))
			return ok
		}), nil
	}
	return nil, fmt.Errorf("unknown rule identifier")
}

// withIDColumn assigns the 1-based sequential id column in current row
// order, overwriting any existing id column in place.
func withIDColumn(ds *dataset.Dataset) (*dataset.Dataset, error) {
	ids := make([]interface{}, ds.NumRows())
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	out, err := ds.WithColumn(IDColumn, ids)
	if err != nil {
		return nil, fmt.Errorf("cleaner: assigning id column: %w", err)
	}
	return out, nil
}
