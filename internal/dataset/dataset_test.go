package dataset

import (
	"reflect"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	var nilPtr *int
	var nilMap map[string]int
	testCases := []struct {
		name  string
		value interface{}
		want  Kind
	}{
		{name: "nil interface", value: nil, want: Null},
		{name: "typed nil pointer", value: nilPtr, want: Null},
		{name: "typed nil map", value: nilMap, want: Null},
		{name: "string", value: "abc", want: Text},
		{name: "empty string", value: "", want: Text},
		{name: "byte slice", value: []byte("abc"), want: Text},
		{name: "int", value: 42, want: Numeric},
		{name: "int64", value: int64(42), want: Numeric},
		{name: "uint8", value: uint8(7), want: Numeric},
		{name: "float64", value: 3.14, want: Numeric},
		{name: "bool", value: true, want: Other},
		{name: "time", value: time.Now(), want: Other},
		{name: "non-nil map", value: map[string]int{"a": 1}, want: Other},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.value); got != tc.want {
				t.Errorf("KindOf(%#v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestTextOf(t *testing.T) {
	testCases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "string passthrough", value: "hello", want: "hello"},
		{name: "bytes", value: []byte("hi"), want: "hi"},
		{name: "int", value: 12, want: "12"},
		{name: "integral float", value: 30.0, want: "30"},
		{name: "fractional float", value: 2.5, want: "2.5"},
		{name: "bool", value: true, want: "true"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TextOf(tc.value); got != tc.want {
				t.Errorf("TextOf(%#v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestNumericOf(t *testing.T) {
	testCases := []struct {
		name   string
		value  interface{}
		want   float64
		wantOK bool
	}{
		{name: "int", value: 42, want: 42, wantOK: true},
		{name: "negative int64", value: int64(-7), want: -7, wantOK: true},
		{name: "float", value: 2.5, want: 2.5, wantOK: true},
		{name: "numeric text", value: "30", want: 30, wantOK: true},
		{name: "padded numeric text", value: "  30 ", want: 30, wantOK: true},
		{name: "scientific text", value: "1e3", want: 1000, wantOK: true},
		{name: "non-numeric text", value: "x", wantOK: false},
		{name: "empty text", value: "", wantOK: false},
		{name: "nil", value: nil, wantOK: false},
		{name: "bool", value: true, wantOK: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NumericOf(tc.value)
			if ok != tc.wantOK {
				t.Fatalf("NumericOf(%#v) ok = %v, want %v", tc.value, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("NumericOf(%#v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestKeyOf(t *testing.T) {
	t.Run("two nulls collide", func(t *testing.T) {
		var nilPtr *string
		if KeyOf(nil) != KeyOf(nilPtr) {
			t.Errorf("nil and typed nil should share a key")
		}
	})
	t.Run("null distinct from empty string", func(t *testing.T) {
		if KeyOf(nil) == KeyOf("") {
			t.Errorf("null must not collide with empty string")
		}
	})
	t.Run("numeric normalization", func(t *testing.T) {
		if KeyOf(1) != KeyOf(1.0) {
			t.Errorf("1 and 1.0 should collide")
		}
		if KeyOf(int64(5)) != KeyOf(uint8(5)) {
			t.Errorf("integer widths should collide on value")
		}
	})
	t.Run("text distinct from numeric", func(t *testing.T) {
		if KeyOf("1") == KeyOf(1) {
			t.Errorf("text \"1\" must not collide with numeric 1")
		}
	})
}

func TestTextLen(t *testing.T) {
	testCases := []struct {
		name  string
		value interface{}
		want  int
	}{
		{name: "ascii", value: "abc", want: 3},
		{name: "runes not bytes", value: "héllo", want: 5},
		{name: "numeric", value: 123, want: 3},
		{name: "nil", value: nil, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TextLen(tc.value); got != tc.want {
				t.Errorf("TextLen(%#v) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestNewRejectsBadColumns(t *testing.T) {
	if _, err := New("a", "a"); err == nil {
		t.Errorf("expected error for duplicate column names")
	}
	if _, err := New("a", ""); err == nil {
		t.Errorf("expected error for empty column name")
	}
}

func TestAppendRowArity(t *testing.T) {
	ds := MustNew("a", "b")
	if err := ds.AppendRow(1); err == nil {
		t.Errorf("expected error for short row")
	}
	if err := ds.AppendRow(1, 2, 3); err == nil {
		t.Errorf("expected error for long row")
	}
	if err := ds.AppendRow(1, 2); err != nil {
		t.Errorf("unexpected error for matching row: %v", err)
	}
	if ds.NumRows() != 1 {
		t.Errorf("NumRows = %d, want 1", ds.NumRows())
	}
}

func TestFilterLeavesReceiverIntact(t *testing.T) {
	ds := MustNew("n")
	for _, v := range []interface{}{1, 2, 3, 4} {
		if err := ds.AppendRow(v); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	even := ds.Filter(func(row int) bool {
		f, _ := NumericOf(ds.Value(row, 0))
		return int(f)%2 == 0
	})
	if even.NumRows() != 2 {
		t.Errorf("filtered NumRows = %d, want 2", even.NumRows())
	}
	if ds.NumRows() != 4 {
		t.Errorf("receiver NumRows = %d, want 4 (must not mutate)", ds.NumRows())
	}
	if got := even.Value(0, 0); got != 2 {
		t.Errorf("filtered first value = %v, want 2", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ds := MustNew("a")
	if err := ds.AppendRow("x"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	clone := ds.Clone()
	if err := clone.AppendRow("y"); err != nil {
		t.Fatalf("AppendRow on clone: %v", err)
	}
	if ds.NumRows() != 1 || clone.NumRows() != 2 {
		t.Errorf("clone not independent: original %d rows, clone %d rows", ds.NumRows(), clone.NumRows())
	}
}

func TestWithColumn(t *testing.T) {
	t.Run("existing column keeps position", func(t *testing.T) {
		ds := MustNew("id", "name")
		if err := ds.AppendRow("old", "alice"); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
		out, err := ds.WithColumn("id", []interface{}{int64(1)})
		if err != nil {
			t.Fatalf("WithColumn: %v", err)
		}
		if !reflect.DeepEqual(out.Columns(), []string{"id", "name"}) {
			t.Errorf("columns = %v, want [id name]", out.Columns())
		}
		if got := out.Value(0, 0); got != int64(1) {
			t.Errorf("overwritten value = %v, want 1", got)
		}
		if got := ds.Value(0, 0); got != "old" {
			t.Errorf("receiver mutated: %v", got)
		}
	})
	t.Run("new column appended last", func(t *testing.T) {
		ds := MustNew("name")
		if err := ds.AppendRow("alice"); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
		out, err := ds.WithColumn("id", []interface{}{int64(1)})
		if err != nil {
			t.Fatalf("WithColumn: %v", err)
		}
		if !reflect.DeepEqual(out.Columns(), []string{"name", "id"}) {
			t.Errorf("columns = %v, want [name id]", out.Columns())
		}
	})
	t.Run("length mismatch rejected", func(t *testing.T) {
		ds := MustNew("a")
		if _, err := ds.WithColumn("b", []interface{}{1}); err == nil {
			t.Errorf("expected error for value count mismatch")
		}
	})
}

func TestRowMap(t *testing.T) {
	ds := MustNew("a", "b")
	if err := ds.AppendRow(1, "x"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	got := ds.RowMap(0)
	want := map[string]interface{}{"a": 1, "b": "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RowMap = %#v, want %#v", got, want)
	}
}
