package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/intellidash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	batchOpts   runFlags
	batchOutDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Run the pipeline over many files, one dashboard per file",
	Example: `  intellidash batch 'data/*.csv'
  intellidash batch q1.xlsx q2.xlsx --out-dir dashboards --no-ai`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := utils.ExpandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c := settings()
		hist, err := maybeOpenHistory(c, batchOpts.NoHistory)
		if err != nil {
			return err
		}
		if hist != nil {
			defer hist.Close()
		}

		w := cmd.OutOrStdout()
		// Same-stem inputs (a.csv, a.xlsx) must not overwrite each other.
		taken := map[string]bool{}
		total := len(files)
		var failed []string
		for i, path := range files {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if !batchOpts.Quiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			outPath := utils.UniquePath(utils.OutputPath(path, batchOutDir, dashboardSuffix), dashboardSuffix, taken)
			taken[outPath] = true
			if _, err := runFile(cmd.Context(), w, c, hist, path, outPath, batchOpts); err != nil {
				fmt.Fprintf(w, "✗ %v\n", err)
				failed = append(failed, filepath.Base(path))
				continue
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed: %v", len(failed), total, failed)
		}
		if !batchOpts.Quiet {
			fmt.Fprintf(w, "✓ Processed %d files\n", total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for dashboards (default next to each input)")
	addRunFlags(batchCmd, &batchOpts)
}
