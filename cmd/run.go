package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/intellidash-cli/internal/config"
	"github.com/KaramelBytes/intellidash-cli/internal/pipeline"
	"github.com/KaramelBytes/intellidash-cli/internal/store"
	"github.com/KaramelBytes/intellidash-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dashboardSuffix = ".dashboard.json"

// runFlags are shared by run and batch.
type runFlags struct {
	runtimeOptions
	Strategy  string
	Sheet     string
	Offline   bool
	NoHistory bool
	Full      bool
	Quiet     bool
}

var (
	runOpts runFlags
	runOut  string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the full pipeline on one data file and write chart data",
	Example: `  intellidash run sales.csv
  intellidash run sales.xlsx --strategy fill_mean --out dash.json
  intellidash run metrics.parquet --provider ollama --model llama3.1
  intellidash run sales.csv --no-ai --full`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		input := args[0]
		outPath := runOut
		if outPath == "" {
			outPath = utils.OutputPath(input, "", dashboardSuffix)
		}
		hist, err := maybeOpenHistory(c, runOpts.NoHistory)
		if err != nil {
			return err
		}
		if hist != nil {
			defer hist.Close()
		}
		_, err = runFile(cmd.Context(), cmd.OutOrStdout(), c, hist, input, outPath, runOpts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "output path (default <input stem>.dashboard.json next to the input)")
	addRunFlags(runCmd, &runOpts)
}

func addRunFlags(cmd *cobra.Command, rf *runFlags) {
	cmd.Flags().StringVar(&rf.Strategy, "strategy", "", "missing-value strategy: drop | fill_mean | fill_forward (default from config)")
	cmd.Flags().StringVar(&rf.Sheet, "sheet", "", "XLSX worksheet to read (default first sheet)")
	cmd.Flags().StringVar(&rf.ProviderFlag, "provider", "", "collaborator provider: openai | ollama | gemini")
	cmd.Flags().StringVar(&rf.ModelFlag, "model", "", "model name (default from config)")
	cmd.Flags().StringVar(&rf.BaseURL, "base-url", "", "OpenAI-compatible base URL")
	cmd.Flags().StringVar(&rf.OllamaHost, "ollama-host", "", "Ollama host (default from OLLAMA_HOST or config)")
	cmd.Flags().BoolVar(&rf.Offline, "no-ai", false, "skip the collaborator; statistics only, no charts")
	cmd.Flags().BoolVar(&rf.NoHistory, "no-history", false, "do not record this run in the history database")
	cmd.Flags().BoolVar(&rf.Full, "full", false, "write the whole run outcome instead of only the visualizations")
	cmd.Flags().BoolVarP(&rf.Quiet, "quiet", "q", false, "suppress progress output")
}

func maybeOpenHistory(c *cfgpkg.Global, disabled bool) (*store.Store, error) {
	if disabled {
		return nil, nil
	}
	s, err := openHistory(c)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return s, nil
}

// historyRecorder stamps the dashboard path on completed runs.
type historyRecorder struct {
	store  *store.Store
	output string
}

func (h historyRecorder) SaveRun(ctx context.Context, r store.Run) error {
	if r.Status == pipeline.StatusCompleted.String() {
		r.Output = h.output
	}
	return h.store.SaveRun(ctx, r)
}

// runFile runs the pipeline on input and writes the dashboard to outPath.
// A failed run writes nothing and returns the stage error.
func runFile(ctx context.Context, w io.Writer, c *cfgpkg.Global, hist *store.Store, input, outPath string, rf runFlags) (*pipeline.Outcome, error) {
	collab, desc, err := buildCollaborator(c, rf.runtimeOptions, rf.Offline)
	if err != nil {
		return nil, err
	}
	deps, err := pipelineDeps(c, collab, rf.Strategy)
	if err != nil {
		return nil, err
	}
	deps.Ingest.Sheet = rf.Sheet
	if hist != nil {
		deps.Recorder = historyRecorder{store: hist, output: outPath}
	}
	if !rf.Quiet {
		if desc == "" {
			desc = "none (statistics only)"
		}
		fmt.Fprintf(w, "Collaborator: %s\n", desc)
		deps.OnStage = func(r pipeline.StageReport) { printStage(w, r) }
	}

	out := pipeline.New(deps).Run(ctx, input)
	if out.Status != pipeline.StatusCompleted {
		return out, fmt.Errorf("%s: %s", filepath.Base(input), out.Error)
	}

	var payload any = out.Charts
	if rf.Full {
		payload = out
	}
	data, err := utils.PrettyJSON(payload)
	if err != nil {
		return out, fmt.Errorf("encode dashboard: %w", err)
	}
	if err := utils.SafeWriteFile(outPath, data); err != nil {
		return out, err
	}
	logger.Info("dashboard written", zap.String("path", outPath), zap.Int("charts", len(out.Charts)))
	if !rf.Quiet {
		printSummary(w, out)
		fmt.Fprintf(w, "✓ Wrote %d charts to %s\n", len(out.Charts), outPath)
	}
	return out, nil
}

func printStage(w io.Writer, r pipeline.StageReport) {
	switch r.Status {
	case "skipped":
		fmt.Fprintf(w, "  - %s skipped\n", r.Name)
	case pipeline.StatusFailed.String():
		fmt.Fprintf(w, "  ✗ %s: %s\n", r.Name, r.Error)
	default:
		if r.Name == pipeline.StageFinalize {
			return
		}
		fmt.Fprintf(w, "  ✓ %s (%s)\n", r.Name, r.Duration.Round(time.Microsecond))
	}
}

func printSummary(w io.Writer, out *pipeline.Outcome) {
	if s := out.Ingestion; s != nil {
		fmt.Fprintf(w, "✓ Loaded %d rows × %d columns (%s)\n", s.TotalRows, s.TotalColumns, strings.Join(s.Columns, ", "))
	}
	if r := out.CleaningReport; r != nil {
		fmt.Fprintf(w, "✓ Cleaned: %d duplicates removed, %d rows removed, %d columns converted, final shape %d×%d\n",
			r.DuplicatesRemoved, r.RowsRemoved, len(r.DataTypeConversions), r.FinalShape[0], r.FinalShape[1])
	}
	if a := out.Analysis; a != nil {
		domain := "unknown"
		if d, ok := a.DomainInfo["domain"].(string); ok && d != "" {
			domain = d
		}
		fmt.Fprintf(w, "✓ Analysis: %d numeric columns, %d strong correlations, completeness %.1f%%, domain %s\n",
			len(a.Statistics), len(a.Insights.Correlations), a.Insights.DataQuality.Completeness, domain)
	}
	if len(out.Charts) > 0 {
		types := make([]string, 0, len(out.Charts))
		for _, r := range out.Charts {
			if t, ok := r.Chart["type"].(string); ok {
				types = append(types, t)
			}
		}
		fmt.Fprintf(w, "✓ Charts: %s\n", strings.Join(types, ", "))
	}
}

var _ pipeline.Recorder = historyRecorder{}
