// Package pipeline runs ingestion, cleaning, analytics and visualization
// in sequence and reports the run as one Outcome.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/intellidash-cli/internal/analysis"
	"github.com/KaramelBytes/intellidash-cli/internal/chart"
	"github.com/KaramelBytes/intellidash-cli/internal/clean"
	"github.com/KaramelBytes/intellidash-cli/internal/ingest"
	"github.com/KaramelBytes/intellidash-cli/internal/store"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names in execution order.
const (
	StageIngestion     = "ingestion"
	StageCleaning      = "cleaning"
	StageAnalytics     = "analytics"
	StageVisualization = "visualization"
	StageFinalize      = "finalize"
)

// StageReport is the per-stage line of an Outcome. Skipped stages never ran
// because an earlier stage failed.
type StageReport struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Outcome is the result of one run.
type Outcome struct {
	RunID          uuid.UUID        `json:"run_id"`
	Source         string           `json:"source"`
	Status         Status           `json:"status"`
	Error          string           `json:"error,omitempty"`
	Messages       []string         `json:"messages"`
	Stages         []StageReport    `json:"stages"`
	Metadata       *ingest.Metadata `json:"metadata,omitempty"`
	Ingestion      *ingest.Summary  `json:"ingestion_summary,omitempty"`
	CleaningReport *clean.Report    `json:"cleaning_report,omitempty"`
	Analysis       *analysis.Result `json:"analysis,omitempty"`
	Charts         []chart.Rendered `json:"visualizations"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	Cleaned        *table.Table     `json:"-"`
	err            error
}

// Err returns the first stage error, if any.
func (o *Outcome) Err() error { return o.err }

// Record converts the outcome into a history entry.
func (o *Outcome) Record() store.Run {
	r := store.Run{
		ID:         o.RunID,
		Source:     o.Source,
		Status:     o.Status.String(),
		Error:      o.Error,
		Charts:     len(o.Charts),
		Messages:   o.Messages,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if o.Metadata != nil {
		r.Rows, r.Columns = o.Metadata.Shape[0], o.Metadata.Shape[1]
	}
	return r
}

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, r store.Run) error
}

// Deps wires an Orchestrator. A nil Collaborator yields empty domain and
// plan mappings, so no charts are rendered.
type Deps struct {
	Collaborator analysis.Collaborator
	Ingest       ingest.Options
	Clean        clean.Options
	Analysis     analysis.Options
	Chart        chart.Options
	Logger       *zap.Logger
	Recorder     Recorder
	// OnStage is called after every stage, skipped ones included.
	OnStage func(StageReport)
	Now     func() time.Time
}

// Orchestrator runs the stages of one file in order.
type Orchestrator struct {
	deps       Deps
	log        *zap.Logger
	cleaner    *clean.Cleaner
	analyzer   *analysis.Analyzer
	visualizer *chart.Visualizer
}

// New builds an Orchestrator, filling in a no-op logger and wall clock.
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Clean.Logger = d.Logger.Named("clean")
	d.Analysis.Logger = d.Logger.Named("analysis")
	d.Chart.Logger = d.Logger.Named("chart")
	return &Orchestrator{
		deps:       d,
		log:        d.Logger,
		cleaner:    clean.New(d.Clean),
		analyzer:   analysis.New(d.Collaborator, d.Analysis),
		visualizer: chart.NewVisualizer(d.Chart),
	}
}

type loaded struct {
	table *table.Table
	meta  ingest.Metadata
}

type cleaned struct {
	table  *table.Table
	report clean.Report
}

type analyzed struct {
	table  *table.Table
	result *analysis.Result
}

// Run executes every stage for the file at path. Stage errors never escape:
// they end up in the Outcome, the first one winning.
func (o *Orchestrator) Run(ctx context.Context, path string) *Outcome {
	out := &Outcome{
		RunID:     uuid.New(),
		Source:    path,
		StartedAt: o.deps.Now(),
		Charts:    []chart.Rendered{},
	}
	log := o.log.With(zap.String("run_id", out.RunID.String()), zap.String("source", path))
	log.Info("run started")

	var ing Result[loaded]
	o.timed(out, log, StageIngestion, func() (Status, error) {
		t, meta, err := ingest.LoadWith(ctx, path, o.deps.Ingest)
		if err != nil {
			ing = Failed[loaded](err)
		} else {
			ing = Completed(loaded{table: t, meta: meta})
			out.Metadata = &meta
			sum := ingest.Summarize(t)
			out.Ingestion = &sum
		}
		return ing.Status(), ing.Err()
	})

	var cl Result[cleaned]
	o.timed(out, log, StageCleaning, func() (Status, error) {
		cl = Then(ing, func(in loaded) (cleaned, error) {
			t, rep, err := o.cleaner.Clean(in.table)
			return cleaned{table: t, report: rep}, err
		})
		if v, ok := cl.Value(); ok {
			out.CleaningReport = &v.report
			out.Cleaned = v.table
		}
		return cl.Status(), cl.Err()
	})

	var an Result[analyzed]
	o.timed(out, log, StageAnalytics, func() (Status, error) {
		an = Then(cl, func(in cleaned) (analyzed, error) {
			res, err := o.analyzer.Analyze(ctx, in.table)
			return analyzed{table: in.table, result: res}, err
		})
		if v, ok := an.Value(); ok {
			out.Analysis = v.result
		}
		return an.Status(), an.Err()
	})

	var viz Result[[]chart.Rendered]
	o.timed(out, log, StageVisualization, func() (Status, error) {
		viz = Then(an, func(in analyzed) ([]chart.Rendered, error) {
			specs := chart.DecodePlan(in.result.VisualizationPlan)
			return o.visualizer.Render(in.table, specs)
		})
		if v, ok := viz.Value(); ok {
			out.Charts = v
		}
		return viz.Status(), viz.Err()
	})

	o.finalize(out, log)
	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.SaveRun(ctx, out.Record()); err != nil {
			log.Warn("could not record run", zap.Error(err))
		}
	}
	return out
}

// timed runs one stage, or records it as skipped once the run has failed.
func (o *Orchestrator) timed(out *Outcome, log *zap.Logger, name string, run func() (Status, error)) {
	rep := StageReport{Name: name}
	if out.err != nil {
		rep.Status = "skipped"
		log.Debug("stage skipped", zap.String("stage", name))
		o.report(rep)
		out.Stages = append(out.Stages, rep)
		return
	}
	start := o.deps.Now()
	status, err := run()
	rep.Duration = o.deps.Now().Sub(start)
	rep.Status = status.String()
	out.Messages = append(out.Messages, fmt.Sprintf("%s: %s", stageTitle(name), status))
	if err != nil {
		rep.Error = err.Error()
		out.err = err
		out.Error = err.Error()
		log.Error("stage failed", zap.String("stage", name), zap.Error(err))
	} else {
		log.Info("stage completed", zap.String("stage", name), zap.Duration("took", rep.Duration))
	}
	o.report(rep)
	out.Stages = append(out.Stages, rep)
}

func (o *Orchestrator) finalize(out *Outcome, log *zap.Logger) {
	out.FinishedAt = o.deps.Now()
	rep := StageReport{Name: StageFinalize, Status: StatusCompleted.String()}
	if out.err != nil {
		out.Status = StatusFailed
		rep.Status = StatusFailed.String()
		rep.Error = out.Error
		out.Messages = append(out.Messages, "Workflow failed")
		log.Warn("run failed", zap.String("error", out.Error))
	} else {
		out.Status = StatusCompleted
		log.Info("run completed",
			zap.Int("charts", len(out.Charts)),
			zap.Duration("took", out.FinishedAt.Sub(out.StartedAt)),
		)
	}
	o.report(rep)
	out.Stages = append(out.Stages, rep)
}

func (o *Orchestrator) report(r StageReport) {
	if o.deps.OnStage != nil {
		o.deps.OnStage(r)
	}
}

func stageTitle(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
