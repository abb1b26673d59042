// Package sandbox implements the execution and comparison core of a
// multi-tenant SQL sandbox: it derives a per-environment database identity,
// provisions an isolated read-only database for that environment, runs
// queries against it, and compares two result sets under configurable
// normalization.
package sandbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// SqlValue is a tagged scalar decoded from a single result-set cell. It
// serializes untagged: on the wire a value is its bare JSON payload, and on
// decode the first variant whose shape matches wins, probed in the order
// Bool, Int, Float, Text.
type SqlValue struct {
	kind  sqlValueKind
	b     bool
	i     int64
	f     float64
	s     string
}

type sqlValueKind uint8

const (
	kindBool sqlValueKind = iota
	kindInt
	kindFloat
	kindText
)

// BoolValue builds a Bool-variant SqlValue.
func BoolValue(b bool) SqlValue { return SqlValue{kind: kindBool, b: b} }

// IntValue builds an Int-variant SqlValue.
func IntValue(i int64) SqlValue { return SqlValue{kind: kindInt, i: i} }

// FloatValue builds a Float-variant SqlValue.
func FloatValue(f float64) SqlValue { return SqlValue{kind: kindFloat, f: f} }

// TextValue builds a Text-variant SqlValue.
func TextValue(s string) SqlValue { return SqlValue{kind: kindText, s: s} }

// IsBool reports whether v holds the Bool variant, along with its payload.
func (v SqlValue) IsBool() (bool, bool) { return v.b, v.kind == kindBool }

// IsInt reports whether v holds the Int variant, along with its payload.
func (v SqlValue) IsInt() (int64, bool) { return v.i, v.kind == kindInt }

// IsFloat reports whether v holds the Float variant, along with its payload.
func (v SqlValue) IsFloat() (float64, bool) { return v.f, v.kind == kindFloat }

// IsText reports whether v holds the Text variant, along with its payload.
func (v SqlValue) IsText() (string, bool) { return v.s, v.kind == kindText }

// Equal reports exact equality with no numeric tolerance. Float payloads
// compare with IEEE-754 ==, so NaN != NaN and 0.0 == -0.0.
func (v SqlValue) Equal(other SqlValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case kindBool:
		return v.b == other.b
	case kindInt:
		return v.i == other.i
	case kindFloat:
		return v.f == other.f
	default:
		return v.s == other.s
	}
}

// variant index ordering Bool < Int < Float < Text, used as the synthetic
// tie-break between cells whose variants differ. Ordering across variants
// is otherwise undefined.
func (v SqlValue) compare(other SqlValue) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case kindBool:
		if v.b == other.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case kindInt:
		switch {
		case v.i < other.i:
			return -1
		case v.i > other.i:
			return 1
		default:
			return 0
		}
	case kindFloat:
		switch {
		case v.f < other.f:
			return -1
		case v.f > other.f:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare([]byte(v.s), []byte(other.s))
	}
}

// MarshalJSON emits the bare payload — SqlValue is untagged on the wire.
func (v SqlValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindBool:
		return json.Marshal(v.b)
	case kindInt:
		return json.Marshal(v.i)
	case kindFloat:
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON probes Bool, Int, Float, Text in order and keeps the first
// variant whose shape matches.
func (v *SqlValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*v = IntValue(i)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = FloatValue(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}
	return fmt.Errorf("sandbox: %q matches no SqlValue variant", string(data))
}

// ResultSet is the decoded outcome of running a query: an ordered sequence
// of column names and an ordered sequence of rows, each with exactly
// len(Columns) cells (invariant I1).
type ResultSet struct {
	Columns []string     `json:"columns"`
	Rows    [][]SqlValue `json:"rows"`
}

// Equal tests structural equality: same columns in the same order, same
// rows in the same order, cell-by-cell via SqlValue.Equal.
func (r ResultSet) Equal(other ResultSet) bool {
	if len(r.Columns) != len(other.Columns) {
		return false
	}
	for i := range r.Columns {
		if r.Columns[i] != other.Columns[i] {
			return false
		}
	}
	if len(r.Rows) != len(other.Rows) {
		return false
	}
	for i := range r.Rows {
		if len(r.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for j := range r.Rows[i] {
			if !r.Rows[i][j].Equal(other.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// SortColumns stable-sorts columns lexicographically by name in place,
// permuting each row identically so cell-to-column association is
// preserved.
func (r *ResultSet) SortColumns() {
	indices := make([]int, len(r.Columns))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return r.Columns[indices[i]] < r.Columns[indices[j]]
	})

	newColumns := make([]string, len(r.Columns))
	for newIdx, oldIdx := range indices {
		newColumns[newIdx] = r.Columns[oldIdx]
	}

	for _, row := range r.Rows {
		newRow := make([]SqlValue, len(row))
		for newIdx, oldIdx := range indices {
			newRow[newIdx] = row[oldIdx]
		}
		copy(row, newRow)
	}
	r.Columns = newColumns
}

// NumberColumns replaces each column name with its zero-based ordinal as
// decimal text. Rows are untouched.
func (r *ResultSet) NumberColumns() {
	for i := range r.Columns {
		r.Columns[i] = fmt.Sprintf("%d", i)
	}
}

// SortRows sorts rows by lexicographic comparison of their cell sequences,
// using the variant-index tie-break from SqlValue.compare. The sort is
// deterministic for a fixed input and collates equal rows together.
func (r *ResultSet) SortRows() {
	sort.SliceStable(r.Rows, func(i, j int) bool {
		a, b := r.Rows[i], r.Rows[j]
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		for k := 0; k < n; k++ {
			if c := a[k].compare(b[k]); c != 0 {
				return c < 0
			}
		}
		return len(a) < len(b)
	})
}

// RowNormalisation selects how rows are canonicalized before comparison.
type RowNormalisation string

const (
	RowNormalisationNone     RowNormalisation = "NoNormalization"
	RowNormalisationSortRows RowNormalisation = "SortRows"
)

// ColumnNormalisation selects how columns are canonicalized before
// comparison.
type ColumnNormalisation string

const (
	ColumnNormalisationNone             ColumnNormalisation = "NoNormalization"
	ColumnNormalisationSortByName       ColumnNormalisation = "SortColumnsByName"
	ColumnNormalisationNumberByOrder    ColumnNormalisation = "NumberColumnsByOrder"
)

// Normalize applies column normalization before row normalization, so a
// row-sort that depends on a consistent column order always sees one.
func (r *ResultSet) Normalize(colNorm ColumnNormalisation, rowNorm RowNormalisation) {
	switch colNorm {
	case ColumnNormalisationSortByName:
		r.SortColumns()
	case ColumnNormalisationNumberByOrder:
		r.NumberColumns()
	}
	if rowNorm == RowNormalisationSortRows {
		r.SortRows()
	}
}

// DatabaseInfo is the structured schema-introspection payload. It is
// always produced fresh; it is never cached.
type DatabaseInfo struct {
	Tables      []TableInfo      `json:"tables"`
	Constraints []ConstraintInfo `json:"constraints"`
	Views       []ViewInfo       `json:"views"`
	Routines    []RoutineInfo    `json:"routines"`
	Triggers    []TriggerInfo    `json:"triggers"`
}

// TableColumn describes one column of one introspected table.
type TableColumn struct {
	Name       string `json:"name"`
	IsNullable bool   `json:"isNullable"`
	UdtName    string `json:"udtName"`
}

// TableInfo describes one introspected table and its columns.
type TableInfo struct {
	Name string        `json:"name"`
	JSON []TableColumn `json:"json"`
}

// ConstraintDetail describes one constraint on one table.
type ConstraintDetail struct {
	ColumnName  *string `json:"columnName,omitempty"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	CheckClause *string `json:"check_clause,omitempty"`
}

// ConstraintInfo groups constraint details by table.
type ConstraintInfo struct {
	Table string             `json:"table"`
	JSON  []ConstraintDetail `json:"json"`
}

// ViewInfo describes one view and its defining SQL.
type ViewInfo struct {
	Table      string `json:"table"`
	Definition string `json:"definition"`
}

// RoutineInfo describes one routine (function or procedure).
type RoutineInfo struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Definition *string `json:"definition,omitempty"`
	Parameters *string `json:"parameters,omitempty"`
}

// TriggerInfo describes one trigger.
type TriggerInfo struct {
	Name        string   `json:"name"`
	ObjectTable string   `json:"objectTable"`
	JSON        []string `json:"json"`
	Statement   string   `json:"statement"`
	Orientation string   `json:"orientation"`
	Timing      string   `json:"timing"`
}
