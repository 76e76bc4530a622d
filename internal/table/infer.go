package table

import (
	"math"
	"strconv"
	"strings"
)

var nullTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "<na>": {}, "#n/a": {},
}

// IsNullToken reports whether a raw cell denotes a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseNumber parses a decimal number, ignoring surrounding whitespace.
// NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	}
	return false, false
}

// InferColumn builds a typed column from raw string cells. The column is
// numeric when every non-missing cell parses as a number, boolean when every
// non-missing cell is a boolean literal, and text otherwise. A column with no
// values at all is numeric.
func InferColumn(name string, cells []string) *Column {
	nulls := make([]bool, len(cells))
	allNum, allBool := true, true
	for i, s := range cells {
		if IsNullToken(s) {
			nulls[i] = true
			continue
		}
		if allNum {
			if _, ok := ParseNumber(s); !ok {
				allNum = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
	}
	switch {
	case allNum:
		vals := make([]float64, len(cells))
		for i, s := range cells {
			if !nulls[i] {
				vals[i], _ = ParseNumber(s)
			}
		}
		return NewNumeric(name, vals, nulls)
	case allBool:
		vals := make([]bool, len(cells))
		for i, s := range cells {
			if !nulls[i] {
				vals[i], _ = parseBool(s)
			}
		}
		return NewBool(name, vals, nulls)
	default:
		vals := make([]string, len(cells))
		for i, s := range cells {
			if !nulls[i] {
				vals[i] = s
			}
		}
		return NewText(name, vals, nulls)
	}
}

// FromRows builds a table from a header and string rows. Short rows are
// padded with missing cells; extra cells are ignored.
func FromRows(header []string, rows [][]string) (*Table, error) {
	cols := make([]*Column, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, r := range rows {
			if j < len(r) {
				cells[i] = r[j]
			}
		}
		cols[j] = InferColumn(name, cells)
	}
	return New(cols...)
}
