// Package chart turns chart specifications into plot-ready values.
package chart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Chart types a plan may name.
const (
	TypeSingleValue = "single_value"
	TypeLine        = "line"
	TypeBar         = "bar"
	TypeScatter     = "scatter"
	TypePie         = "pie"
	TypeBox         = "box"
	TypeHistogram   = "histogram"
	TypeHeatmap     = "heatmap"
	TypeArea        = "area"
)

// Aggregations a plan may name. AggNone renders raw values.
const (
	AggNone  = ""
	AggMean  = "mean"
	AggSum   = "sum"
	AggCount = "count"
)

// Spec is one planned chart. Raw keeps the specification exactly as the
// planner produced it so it can be echoed back to callers.
type Spec struct {
	ID          string
	Type        string
	X           *string
	Y           *string
	Aggregation string
	Title       string
	Reason      string
	Priority    float64
	Raw         map[string]any
}

// DecodePlan reads the "charts" list of a plan. Entries that are not
// objects are skipped; a missing or malformed list yields no specs.
func DecodePlan(plan map[string]any) []Spec {
	items, ok := plan["charts"].([]any)
	if !ok {
		return nil
	}
	out := make([]Spec, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, SpecFromMap(m))
	}
	return out
}

// SpecFromMap converts one decoded JSON object into a Spec.
func SpecFromMap(m map[string]any) Spec {
	s := Spec{
		ID:     str(m["id"]),
		Type:   strings.ToLower(strings.TrimSpace(str(m["type"]))),
		X:      optStr(m["x"]),
		Y:      optStr(m["y"]),
		Title:  str(m["title"]),
		Reason: str(m["reason"]),
		Raw:    m,
	}
	if agg := optStr(m["aggregation"]); agg != nil {
		s.Aggregation = strings.ToLower(strings.TrimSpace(*agg))
	}
	switch p := m["priority"].(type) {
	case float64:
		s.Priority = p
	case json.Number:
		s.Priority, _ = p.Float64()
	case string:
		s.Priority, _ = strconv.ParseFloat(p, 64)
	}
	return s
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// optStr maps JSON null and the literal "null" to nil.
func optStr(v any) *string {
	if v == nil {
		return nil
	}
	s := str(v)
	if strings.EqualFold(strings.TrimSpace(s), "null") {
		return nil
	}
	return &s
}
