package analysis

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"go.uber.org/zap"
)

// Collaborator is an external text generator. Responses are expected to
// embed one JSON object but are not trusted to.
type Collaborator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures an Analyzer.
type Options struct {
	SampleRows           int
	CorrelationThreshold float64
	TopValues            int
	Plan                 PlanConstraints
	Logger               *zap.Logger
}

// DefaultOptions mirrors the dashboard defaults: five sample rows, |r| >= 0.5,
// five top values and nine charts.
func DefaultOptions() Options {
	return Options{
		SampleRows:           5,
		CorrelationThreshold: 0.5,
		TopValues:            5,
		Plan: PlanConstraints{
			ChartTypes: map[string][2]int{
				"single_value": {3, 3},
				"line":         {0, 99},
				"bar":          {0, 99},
				"scatter":      {0, 1},
				"pie":          {0, 99},
			},
			MinCharts: 9,
			MaxCharts: 9,
		},
	}
}

// Insights groups the derived, collaborator-free findings.
type Insights struct {
	Correlations map[string]float64            `json:"correlations"`
	Categorical  map[string]CategoricalInsight `json:"categorical"`
	DataQuality  DataQuality                   `json:"data_quality"`
}

// Result is the analytics stage output.
type Result struct {
	Statistics        map[string]ColumnStats `json:"statistics"`
	Insights          Insights               `json:"insights"`
	DomainInfo        map[string]any         `json:"domain_info"`
	VisualizationPlan map[string]any         `json:"visualization_plan"`
}

// Analyzer computes statistics and consults the collaborator.
type Analyzer struct {
	collab Collaborator
	opts   Options
	log    *zap.Logger
}

// New returns an Analyzer. A nil collaborator yields empty domain and plan
// mappings.
func New(collab Collaborator, opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.SampleRows <= 0 {
		opts.SampleRows = def.SampleRows
	}
	if opts.CorrelationThreshold <= 0 {
		opts.CorrelationThreshold = def.CorrelationThreshold
	}
	if opts.TopValues <= 0 {
		opts.TopValues = def.TopValues
	}
	if opts.Plan.ChartTypes == nil && opts.Plan.MaxCharts == 0 {
		opts.Plan = def.Plan
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{collab: collab, opts: opts, log: log}
}

// Describe computes statistics and insights without the collaborator.
func (a *Analyzer) Describe(t *table.Table) (*Result, error) {
	if t == nil {
		return nil, errs.Data("analytics", nil, "no cleaned data provided")
	}
	return &Result{
		Statistics: Statistics(t),
		Insights: Insights{
			Correlations: Correlations(t, a.opts.CorrelationThreshold),
			Categorical:  Categorical(t, a.opts.TopValues),
			DataQuality:  Quality(t),
		},
		DomainInfo:        map[string]any{},
		VisualizationPlan: map[string]any{},
	}, nil
}

// Analyze runs Describe, then asks the collaborator for a domain label and a
// chart plan. Unparseable responses become empty mappings; transport errors
// fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, t *table.Table) (*Result, error) {
	res, err := a.Describe(t)
	if err != nil {
		return nil, err
	}
	if a.collab == nil {
		a.log.Warn("no collaborator configured; skipping domain classification and chart planning")
		return res, nil
	}

	columns := t.Names()
	sample := t.Head(a.opts.SampleRows)

	prompt, err := domainPrompt(columns, sample)
	if err != nil {
		return nil, errs.Data("analytics", err, "build domain prompt")
	}
	res.DomainInfo, err = a.ask(ctx, "classify domain", prompt)
	if err != nil {
		return nil, err
	}
	a.log.Debug("domain classified", zap.Any("domain_info", res.DomainInfo))

	prompt, err = planPrompt(res.DomainInfo, res.Insights, columns, sample, a.opts.Plan)
	if err != nil {
		return nil, errs.Data("analytics", err, "build plan prompt")
	}
	res.VisualizationPlan, err = a.ask(ctx, "plan visualizations", prompt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Analyzer) ask(ctx context.Context, op, prompt string) (map[string]any, error) {
	text, err := a.collab.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, perr := ExtractJSON(text)
	if perr != nil {
		a.log.Warn("collaborator response ignored", zap.String("op", op), zap.Error(perr))
	}
	return out, nil
}
