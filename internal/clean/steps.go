package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
)

// HandleMissing applies a missing-value strategy. fill_mean only touches
// numeric columns; fill_forward leaves leading gaps in place.
func HandleMissing(t *table.Table, s Strategy) (*table.Table, error) {
	switch s {
	case StrategyDrop, "":
		keep := make([]int, 0, t.NumRows())
		for i := 0; i < t.NumRows(); i++ {
			if !t.RowHasNull(i) {
				keep = append(keep, i)
			}
		}
		if len(keep) == t.NumRows() {
			return t, nil
		}
		return t.SelectRows(keep), nil
	case StrategyFillMean:
		for _, c := range t.Columns() {
			if c.Kind != table.KindNumeric {
				continue
			}
			sum, n := 0.0, 0
			for i, v := range c.Nums {
				if !c.Nulls[i] {
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			mean := sum / float64(n)
			for i := range c.Nums {
				if c.Nulls[i] {
					c.Nums[i] = mean
					c.Nulls[i] = false
				}
			}
		}
		return t, nil
	case StrategyFillForward:
		for _, c := range t.Columns() {
			last := -1
			for i := range c.Nulls {
				if !c.Nulls[i] {
					last = i
					continue
				}
				if last < 0 {
					continue
				}
				switch c.Kind {
				case table.KindNumeric:
					c.Nums[i] = c.Nums[last]
				case table.KindBool:
					c.Bools[i] = c.Bools[last]
				default:
					c.Strs[i] = c.Strs[last]
				}
				c.Nulls[i] = false
			}
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown missing-value strategy %q", s)
}

// CoerceNumeric converts each text column whose parseable share of non-null
// cells is strictly above threshold. Unparseable cells become missing.
func CoerceNumeric(t *table.Table, threshold float64) map[string]string {
	conv := map[string]string{}
	for idx, c := range t.Columns() {
		if c.Kind != table.KindText {
			continue
		}
		vals := make([]float64, c.Len())
		nulls := make([]bool, c.Len())
		parsed, present := 0, 0
		for i, s := range c.Strs {
			if c.Nulls[i] {
				nulls[i] = true
				continue
			}
			present++
			v, ok := table.ParseNumber(s)
			if !ok {
				nulls[i] = true
				continue
			}
			vals[i] = v
			parsed++
		}
		if present == 0 || float64(parsed)/float64(present) <= threshold {
			continue
		}
		t.Replace(idx, table.NewNumeric(c.Name, vals, nulls))
		conv[c.Name] = "numeric"
	}
	return conv
}

// TrimText strips surrounding whitespace from every text cell.
func TrimText(t *table.Table) {
	for _, c := range t.Columns() {
		if c.Kind != table.KindText {
			continue
		}
		for i, s := range c.Strs {
			c.Strs[i] = strings.TrimSpace(s)
		}
	}
}
