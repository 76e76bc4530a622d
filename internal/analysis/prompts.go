package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PlanConstraints bounds the chart plan requested from the collaborator.
type PlanConstraints struct {
	// ChartTypes maps an allowed chart type to its [min, max] count.
	ChartTypes map[string][2]int
	MinCharts  int
	MaxCharts  int
}

var planRules = []string{
	"Do not plot raw multi-series line charts without aggregation",
	"For binary categorical variables use mean, never sum",
	"Do not use a heatmap for continuous vs categorical relationships",
	"Prefer aggregated metrics over raw data points",
	"Each chart must answer one question",
}

func domainPrompt(columns []string, sample []map[string]any) (string, error) {
	ctx := map[string]any{
		"columns":     columns,
		"sample_data": sample,
	}
	b, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode domain context: %w", err)
	}
	return fmt.Sprintf(`You are a data domain expert.

Identify the DOMAIN of the dataset.

Return ONLY valid JSON:
{
  "domain": "string",
  "confidence": 0.0,
  "dashboard_focus": ["string"]
}

Context:
%s
`, b), nil
}

func planPrompt(domain map[string]any, ins Insights, columns []string, sample []map[string]any, pc PlanConstraints) (string, error) {
	name, _ := domain["domain"].(string)
	if strings.TrimSpace(name) == "" {
		name = "general"
	}
	ctx := map[string]any{
		"domain":               domain,
		"correlations":         ins.Correlations,
		"categorical_insights": ins.Categorical,
		"data_quality":         ins.DataQuality,
		"columns":              columns,
		"sample_data":          sample,
	}
	b, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode plan context: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a senior data analyst specializing in the %s domain.\n\n", name)
	sb.WriteString("Design an executive DASHBOARD tailored to this domain.\n\n")
	sb.WriteString("Rules:\n")
	for _, r := range planRules {
		sb.WriteString("- " + r + "\n")
	}
	if pc.MinCharts > 0 || pc.MaxCharts > 0 {
		if pc.MinCharts == pc.MaxCharts {
			fmt.Fprintf(&sb, "- Produce exactly %d charts\n", pc.MaxCharts)
		} else {
			fmt.Fprintf(&sb, "- Produce between %d and %d charts\n", pc.MinCharts, pc.MaxCharts)
		}
	}
	types := make([]string, 0, len(pc.ChartTypes))
	for t := range pc.ChartTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		lim := pc.ChartTypes[t]
		fmt.Fprintf(&sb, "- Use between %d and %d charts of type %s\n", lim[0], lim[1], t)
	}
	if len(types) == 0 {
		types = []string{"single_value", "line", "bar", "scatter", "pie", "box", "histogram", "heatmap", "area"}
	}
	sb.WriteString(`
Constraints:
- Each chart must be interpretable in under 5 seconds
- Avoid overplotting
- Avoid misleading comparisons due to data imbalance
- Exclude charts that do not directly support a decision

The reason must state the question answered and the decision it supports.

Return ONLY valid JSON:
{
  "charts": [
    {
      "id": "string",
      "type": "`)
	sb.WriteString(strings.Join(types, " | "))
	sb.WriteString(`",
      "x": "column name or null",
      "y": "column name or null",
      "aggregation": "mean | sum | count | null",
      "title": "string",
      "reason": "string",
      "priority": 0.0
    }
  ]
}

Context:
`)
	sb.Write(b)
	sb.WriteString("\n")
	return sb.String(), nil
}
