// Package table holds the in-memory columnar dataset passed between
// pipeline stages.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of equally long columns.
type Table struct {
	cols []*Column
}

// New builds a table, checking that every column has the same length.
func New(cols ...*Column) (*Table, error) {
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if i > 0 && c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), cols[0].Len())
		}
	}
	return &Table{cols: cols}, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if t == nil || len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.cols)
}

// Shape returns [rows, cols].
func (t *Table) Shape() [2]int { return [2]int{t.NumRows(), t.NumCols()} }

// Columns returns the columns in order. Callers must not resize the slice.
func (t *Table) Columns() []*Column { return t.cols }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Replace swaps the column at position i.
func (t *Table) Replace(i int, c *Column) { t.cols[i] = c }

// SelectRows returns a new table with the rows at idx, in that order.
func (t *Table) SelectRows(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Select(idx)
	}
	return &Table{cols: cols}
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Clone()
	}
	return &Table{cols: cols}
}

// NullCount returns the number of missing cells across all columns.
func (t *Table) NullCount() int {
	n := 0
	for _, c := range t.cols {
		n += c.NullCount()
	}
	return n
}

// RowKey returns a key that is equal for two rows exactly when all cells are equal.
func (t *Table) RowKey(i int) string {
	var sb strings.Builder
	for _, c := range t.cols {
		sb.WriteString(c.Key(i))
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

// RowHasNull reports whether any cell in row i is missing.
func (t *Table) RowHasNull(i int) bool {
	for _, c := range t.cols {
		if c.Nulls[i] {
			return true
		}
	}
	return false
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.cols))
	for _, c := range t.cols {
		rec[c.Name] = c.Value(i)
	}
	return rec
}

// Head returns up to n leading rows as records.
func (t *Table) Head(n int) []map[string]any {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, t.Record(i))
	}
	return out
}

// Dtypes maps column names to kind names.
func (t *Table) Dtypes() map[string]string {
	out := make(map[string]string, len(t.cols))
	for _, c := range t.cols {
		out[c.Name] = c.Kind.String()
	}
	return out
}

// MissingByColumn maps column names to their null counts.
func (t *Table) MissingByColumn() map[string]int {
	out := make(map[string]int, len(t.cols))
	for _, c := range t.cols {
		out[c.Name] = c.NullCount()
	}
	return out
}
