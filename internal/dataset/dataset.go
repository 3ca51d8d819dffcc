// Package dataset provides the in-memory tabular representation shared by
// every stage of the pipeline: an ordered set of named columns with
// row-aligned values. Datasets are treated as values; each transformation
// builds a new Dataset and never mutates its input.
package dataset

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind classifies a cell value so cleaning rules can define their behavior
// per variant instead of relying on ad hoc stringification.
type Kind int

const (
	// Null covers nil cells and typed nils reaching the dataset from drivers.
	Null Kind = iota
	// Text covers string and []byte cells.
	Text
	// Numeric covers all integer and float cells.
	Numeric
	// Other covers everything else (bool, time.Time, composites).
	Other
)

// String returns the variant name, used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	default:
		return "other"
	}
}

// KindOf classifies an arbitrary cell value into its variant.
func KindOf(v interface{}) Kind {
	if v == nil {
		return Null
	}
	switch v.(type) {
	case string, []byte:
		return Text
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return Numeric
	}
	// Typed nil pointers/interfaces count as Null so driver NULLs behave
	// uniformly regardless of how they were scanned.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return Null
		}
	}
	return Other
}

// TextOf returns the canonical textual form of a cell value. A Null cell
// has an empty textual form; numerics format without an exponent where
// possible so "12" measures length 2.
func TextOf(v interface{}) string {
	switch KindOf(v) {
	case Null:
		return ""
	case Text:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return v.(string)
	case Numeric:
		if f, ok := NumericOf(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

// NumericOf attempts to coerce a cell value to float64. Text cells are
// parsed after trimming whitespace; Null and Other cells never coerce.
func NumericOf(v interface{}) (float64, bool) {
	switch KindOf(v) {
	case Numeric:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if math.IsNaN(f) {
				return 0, false
			}
			return f, true
		}
	case Text:
		s := strings.TrimSpace(TextOf(v))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// KeyOf returns a stable string form of a cell value suitable for equality
// keys. Nulls map to a distinct marker so two nulls compare equal to each
// other but never to the empty string, and numerics normalize so 1 and 1.0
// collide while "1" (text) stays distinct.
func KeyOf(v interface{}) string {
	switch KindOf(v) {
	case Null:
		return "\x00nil"
	case Text:
		return "s:" + TextOf(v)
	case Numeric:
		f, _ := NumericOf(v)
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if t, ok := v.(time.Time); ok {
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	}
	return "o:" + fmt.Sprintf("%#v", v)
}

// TextLen measures the canonical textual form in runes, not bytes.
func TextLen(v interface{}) int {
	return utf8.RuneCountInString(TextOf(v))
}

// Dataset is a row/column-aligned in-memory table. The zero value is an
// empty dataset with no columns.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// New creates an empty Dataset with the given column order. Duplicate
// column names are rejected because row alignment depends on unique names.
func New(columns ...string) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("dataset: column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column name %q", c)
		}
		index[c] = i
	}
	return &Dataset{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    make([][]interface{}, 0),
	}, nil
}

// MustNew is New for statically known column lists, used by tests and
// adapters that construct headers themselves.
func MustNew(columns ...string) *Dataset {
	ds, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return ds
}

// Columns returns the column names in order. The slice is a copy.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn reports whether the dataset contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	return len(d.rows)
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// AppendRow adds one row; the value count must match the column count.
func (d *Dataset) AppendRow(values ...interface{}) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("dataset: row has %d values, want %d", len(values), len(d.columns))
	}
	d.rows = append(d.rows, append([]interface{}(nil), values...))
	return nil
}

// Value returns the cell at (row, column index).
func (d *Dataset) Value(row, col int) interface{} {
	return d.rows[row][col]
}

// Row returns a copy of one row in column order.
func (d *Dataset) Row(row int) []interface{} {
	return append([]interface{}(nil), d.rows[row]...)
}

// RowMap returns one row as a column-name-keyed map, the shape expected by
// expression evaluation and logging.
func (d *Dataset) RowMap(row int) map[string]interface{} {
	m := make(map[string]interface{}, len(d.columns))
	for i, c := range d.columns {
		m[c] = d.rows[row][i]
	}
	return m
}

// Filter produces a new Dataset containing, in order, the rows for which
// keep returns true. The receiver is unmodified.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	out := d.emptyLike()
	for i := range d.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]interface{}(nil), d.rows[i]...))
		}
	}
	return out
}

// Clone returns an independent deep copy (rows are copied; cell values are
// shared, which is safe because cells are treated as immutable).
func (d *Dataset) Clone() *Dataset {
	out := d.emptyLike()
	out.rows = make([][]interface{}, len(d.rows))
	for i, r := range d.rows {
		out.rows[i] = append([]interface{}(nil), r...)
	}
	return out
}

// WithColumn returns a copy of the dataset where the named column holds
// values[i] for row i. An existing column keeps its position; a new column
// is appended last. values must have exactly one entry per row.
func (d *Dataset) WithColumn(name string, values []interface{}) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("dataset: column name must not be empty")
	}
	if len(values) != len(d.rows) {
		return nil, fmt.Errorf("dataset: column %q has %d values for %d rows", name, len(values), len(d.rows))
	}
	out := d.Clone()
	if i, exists := out.index[name]; exists {
		for r := range out.rows {
			out.rows[r][i] = values[r]
		}
		return out, nil
	}
	out.columns = append(out.columns, name)
	out.index[name] = len(out.columns) - 1
	for r := range out.rows {
		out.rows[r] = append(out.rows[r], values[r])
	}
	return out, nil
}

func (d *Dataset) emptyLike() *Dataset {
	index := make(map[string]int, len(d.columns))
	for k, v := range d.index {
		index[k] = v
	}
	return &Dataset{
		columns: append([]string(nil), d.columns...),
		index:   index,
		rows:    make([][]interface{}, 0),
	}
}
