// Package analysis derives statistics and insights from a cleaned table and
// asks a collaborator for a domain label and chart plan.
package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
)

// ColumnStats holds descriptive statistics for one numeric column. Std is
// nil when fewer than two values are present.
type ColumnStats struct {
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Std    *float64 `json:"std"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Q25    float64  `json:"q25"`
	Q75    float64  `json:"q75"`
}

// CategoryCount is one value and its frequency.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalInsight summarizes one text column.
type CategoricalInsight struct {
	UniqueCount int             `json:"unique_count"`
	TopValues   []CategoryCount `json:"top_values"`
}

// DataQuality reports completeness over all cells.
type DataQuality struct {
	TotalRows     int     `json:"total_rows"`
	TotalColumns  int     `json:"total_columns"`
	MissingValues int     `json:"missing_values"`
	Completeness  float64 `json:"completeness"`
}

// Statistics computes ColumnStats for every numeric column with at least one
// value. Other columns are absent from the result.
func Statistics(t *table.Table) map[string]ColumnStats {
	out := map[string]ColumnStats{}
	for _, c := range t.Columns() {
		if c.Kind != table.KindNumeric {
			continue
		}
		vals := presentValues(c)
		if len(vals) == 0 {
			continue
		}
		out[c.Name] = describe(vals)
	}
	return out
}

func presentValues(c *table.Column) []float64 {
	vals := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.Nulls[i] {
			vals = append(vals, v)
		}
	}
	return vals
}

// describe uses Welford's update for mean and variance.
func describe(vals []float64) ColumnStats {
	var n, mean, m2 float64
	for _, x := range vals {
		n++
		d := x - mean
		mean += d / n
		m2 += d * (x - mean)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	st := ColumnStats{
		Count:  len(vals),
		Mean:   mean,
		Median: quantile(sorted, 0.5),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    quantile(sorted, 0.25),
		Q75:    quantile(sorted, 0.75),
	}
	if n > 1 {
		sd := math.Sqrt(m2 / (n - 1))
		st.Std = &sd
	}
	return st
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Correlations returns Pearson coefficients between numeric columns whose
// absolute value reaches threshold, keyed "a_vs_b" with a before b in
// column order. Each pair uses the rows where both cells are present;
// undefined coefficients are omitted.
func Correlations(t *table.Table, threshold float64) map[string]float64 {
	var num []*table.Column
	for _, c := range t.Columns() {
		if c.Kind == table.KindNumeric {
			num = append(num, c)
		}
	}
	out := map[string]float64{}
	for i := 0; i < len(num); i++ {
		for j := i + 1; j < len(num); j++ {
			r, ok := pearson(num[i], num[j])
			if !ok || math.Abs(r) < threshold {
				continue
			}
			out[num[i].Name+"_vs_"+num[j].Name] = r
		}
	}
	return out
}

func pearson(a, b *table.Column) (float64, bool) {
	var n, sx, sy float64
	for i := range a.Nums {
		if a.Nulls[i] || b.Nulls[i] {
			continue
		}
		n++
		sx += a.Nums[i]
		sy += b.Nums[i]
	}
	if n < 2 {
		return 0, false
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range a.Nums {
		if a.Nulls[i] || b.Nulls[i] {
			continue
		}
		dx := a.Nums[i] - mx
		dy := b.Nums[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// Categorical summarizes every text column: distinct non-missing values and
// the top most frequent ones. Equal counts keep first-seen order.
func Categorical(t *table.Table, top int) map[string]CategoricalInsight {
	out := map[string]CategoricalInsight{}
	for _, c := range t.Columns() {
		if c.Kind != table.KindText {
			continue
		}
		counts := map[string]int{}
		var order []string
		for i, s := range c.Strs {
			if c.Nulls[i] {
				continue
			}
			if _, ok := counts[s]; !ok {
				order = append(order, s)
			}
			counts[s]++
		}
		vals := make([]CategoryCount, len(order))
		for i, s := range order {
			vals[i] = CategoryCount{Value: s, Count: counts[s]}
		}
		sort.SliceStable(vals, func(i, j int) bool { return vals[i].Count > vals[j].Count })
		if len(vals) > top {
			vals = vals[:top]
		}
		out[c.Name] = CategoricalInsight{UniqueCount: len(order), TopValues: vals}
	}
	return out
}

// Quality computes completeness as a percentage of present cells. An empty
// table is fully complete.
func Quality(t *table.Table) DataQuality {
	q := DataQuality{
		TotalRows:     t.NumRows(),
		TotalColumns:  t.NumCols(),
		MissingValues: t.NullCount(),
		Completeness:  100,
	}
	if cells := q.TotalRows * q.TotalColumns; cells > 0 {
		q.Completeness = (1 - float64(q.MissingValues)/float64(cells)) * 100
	}
	return q
}
