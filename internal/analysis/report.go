package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
)

// Markdown renders a compact dataset summary. sampleRows controls the
// sample table; zero omits it.
func (r *Result) Markdown(name string, t *table.Table, sampleRows int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	q := r.Insights.DataQuality
	b.WriteString(fmt.Sprintf("Rows: %d\n", q.TotalRows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", q.TotalColumns))
	b.WriteString(fmt.Sprintf("Completeness: %.1f%% (%d missing cells)\n\n", q.Completeness, q.MissingValues))

	b.WriteString("[SCHEMA]\n")
	for _, c := range t.Columns() {
		missPct := 0.0
		if c.Len() > 0 {
			missPct = float64(c.NullCount()) * 100.0 / float64(c.Len())
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.Len()-c.NullCount(), missPct))
		if st, ok := r.Statistics[c.Name]; ok {
			b.WriteString(fmt.Sprintf(" · min %.4g, q25 %.4g, median %.4g, q75 %.4g, max %.4g, mean %.4g", st.Min, st.Q25, st.Median, st.Q75, st.Max, st.Mean))
			if st.Std != nil {
				b.WriteString(fmt.Sprintf(", std %.4g", *st.Std))
			}
		}
		if ci, ok := r.Insights.Categorical[c.Name]; ok && len(ci.TopValues) > 0 {
			b.WriteString(" · top: ")
			for i, kv := range ci.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if ci.UniqueCount > len(ci.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", ci.UniqueCount))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Insights.Correlations) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		keys := make([]string, 0, len(r.Insights.Correlations))
		for k := range r.Insights.Correlations {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ai := math.Abs(r.Insights.Correlations[keys[i]])
			aj := math.Abs(r.Insights.Correlations[keys[j]])
			if ai == aj {
				return keys[i] < keys[j]
			}
			return ai > aj
		})
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("- %s: r=%.3f\n", k, r.Insights.Correlations[k]))
		}
	}

	if d, ok := r.DomainInfo["domain"].(string); ok && d != "" {
		b.WriteString("\n[DOMAIN]\n")
		b.WriteString(fmt.Sprintf("- %s", d))
		if c, ok := r.DomainInfo["confidence"].(float64); ok {
			b.WriteString(fmt.Sprintf(" (confidence %.2f)", c))
		}
		b.WriteString("\n")
	}

	if sampleRows > 0 && t.NumRows() > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		names := t.Names()
		b.WriteString("| ")
		for i, n := range names {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(n))
		}
		b.WriteString(" |\n| ")
		for i := range names {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, rec := range t.Head(sampleRows) {
			b.WriteString("| ")
			for i, n := range names {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if v := rec[n]; v != nil {
					val = fmt.Sprint(v)
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
