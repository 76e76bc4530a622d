package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/intellidash-cli/internal/analysis"
	"github.com/KaramelBytes/intellidash-cli/internal/clean"
	"github.com/KaramelBytes/intellidash-cli/internal/ingest"
	"github.com/KaramelBytes/intellidash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profOutputPath string
	profSampleRows int
	profStrategy   string
	profSheet      string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Load and clean a data file and print a Markdown summary (no collaborator)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c := settings()
		deps, err := pipelineDeps(c, nil, profStrategy)
		if err != nil {
			return err
		}
		raw, _, err := ingest.LoadWith(cmd.Context(), path, ingest.Options{Sheet: profSheet})
		if err != nil {
			return err
		}
		co := deps.Clean
		co.Logger = logger.Named("clean")
		t, rep, err := clean.New(co).Clean(raw)
		if err != nil {
			return err
		}
		ao := deps.Analysis
		ao.Logger = logger.Named("analysis")
		res, err := analysis.New(nil, ao).Describe(t)
		if err != nil {
			return err
		}
		rows := profSampleRows
		if rows < 0 {
			rows = c.SampleRows
		}
		md := res.Markdown(filepath.Base(path), t, rows)
		md += fmt.Sprintf("\n[CLEANING]\nStrategy: %s\nDuplicates removed: %d\nRows removed: %d\nMissing before/after: %d/%d\n",
			rep.Strategy, rep.DuplicatesRemoved, rep.RowsRemoved, rep.MissingValuesBefore, rep.MissingValuesAfter)

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", -1, "number of sample rows to include (default from config)")
	profileCmd.Flags().StringVar(&profStrategy, "strategy", "", "missing-value strategy: drop | fill_mean | fill_forward")
	profileCmd.Flags().StringVar(&profSheet, "sheet", "", "XLSX worksheet to read (default first sheet)")
}
