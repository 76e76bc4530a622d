package table

import (
	"math"
	"strconv"
)

// Kind is the scalar type shared by every cell of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	default:
		return "text"
	}
}

// Column stores one typed series. Only the slice matching Kind is populated;
// Nulls marks missing cells and always has the column's length.
type Column struct {
	Name  string
	Kind  Kind
	Nums  []float64
	Strs  []string
	Bools []bool
	Nulls []bool
}

// NewNumeric builds a numeric column. A nil nulls slice means no missing cells;
// NaN and infinite values are treated as missing.
func NewNumeric(name string, vals []float64, nulls []bool) *Column {
	n := fixNulls(nulls, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n[i] = true
		}
	}
	return &Column{Name: name, Kind: KindNumeric, Nums: vals, Nulls: n}
}

// NewText builds a text column.
func NewText(name string, vals []string, nulls []bool) *Column {
	return &Column{Name: name, Kind: KindText, Strs: vals, Nulls: fixNulls(nulls, len(vals))}
}

// NewBool builds a boolean column.
func NewBool(name string, vals []bool, nulls []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: vals, Nulls: fixNulls(nulls, len(vals))}
}

func fixNulls(nulls []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, nulls)
	return out
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Nulls) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return c.Nulls[i] }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, null := range c.Nulls {
		if null {
			n++
		}
	}
	return n
}

// Value returns cell i as float64, string, bool or nil.
func (c *Column) Value(i int) any {
	if c.Nulls[i] {
		return nil
	}
	switch c.Kind {
	case KindNumeric:
		return c.Nums[i]
	case KindBool:
		return c.Bools[i]
	default:
		return c.Strs[i]
	}
}

// Key returns a string that is equal for two cells exactly when the cells are
// equal. Missing cells share one key.
func (c *Column) Key(i int) string {
	if c.Nulls[i] {
		return "\x00"
	}
	switch c.Kind {
	case KindNumeric:
		v := c.Nums[i]
		if v == 0 {
			v = 0 // folds -0
		}
		return "n" + strconv.FormatFloat(v, 'g', -1, 64)
	case KindBool:
		return "b" + strconv.FormatBool(c.Bools[i])
	default:
		return "s" + c.Strs[i]
	}
}

// Select returns a new column holding the cells at idx, in that order.
func (c *Column) Select(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Nulls: make([]bool, len(idx))}
	switch c.Kind {
	case KindNumeric:
		out.Nums = make([]float64, len(idx))
	case KindBool:
		out.Bools = make([]bool, len(idx))
	default:
		out.Strs = make([]string, len(idx))
	}
	for j, i := range idx {
		out.Nulls[j] = c.Nulls[i]
		switch c.Kind {
		case KindNumeric:
			out.Nums[j] = c.Nums[i]
		case KindBool:
			out.Bools[j] = c.Bools[i]
		default:
			out.Strs[j] = c.Strs[i]
		}
	}
	return out
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Nulls: append([]bool(nil), c.Nulls...)}
	out.Nums = append([]float64(nil), c.Nums...)
	out.Strs = append([]string(nil), c.Strs...)
	out.Bools = append([]bool(nil), c.Bools...)
	return out
}

// Float returns cell i as a number. Bool cells map to 0/1; text and missing
// cells report false.
func (c *Column) Float(i int) (float64, bool) {
	if c.Nulls[i] {
		return 0, false
	}
	switch c.Kind {
	case KindNumeric:
		return c.Nums[i], true
	case KindBool:
		if c.Bools[i] {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
