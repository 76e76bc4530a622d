package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/intellidash-cli/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	histLimit int
	histJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded pipeline runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHistory(settings())
		if err != nil {
			return err
		}
		defer s.Close()
		runs, err := s.ListRuns(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if histJSON {
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "(no runs recorded)")
			return nil
		}
		for _, r := range runs {
			mark := "✓"
			if r.Status != "completed" {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s  %s  %s  %d×%d  %d charts  %s\n",
				mark, r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source, r.Rows, r.Columns, r.Charts, r.Duration().Round(time.Millisecond))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run with its stage messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		s, err := openHistory(settings())
		if err != nil {
			return err
		}
		defer s.Close()
		r, err := s.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if histJSON {
			b, err := utils.PrettyJSON(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		fmt.Fprintf(w, "Run:      %s\n", r.ID)
		fmt.Fprintf(w, "Source:   %s\n", r.Source)
		fmt.Fprintf(w, "Status:   %s\n", r.Status)
		if r.Error != "" {
			fmt.Fprintf(w, "Error:    %s\n", r.Error)
		}
		fmt.Fprintf(w, "Shape:    %d×%d\n", r.Rows, r.Columns)
		fmt.Fprintf(w, "Charts:   %d\n", r.Charts)
		if r.Output != "" {
			fmt.Fprintf(w, "Output:   %s\n", r.Output)
		}
		fmt.Fprintf(w, "Started:  %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond))
		for _, m := range r.Messages {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.PersistentFlags().IntVar(&histLimit, "limit", 20, "maximum runs to list")
	historyCmd.PersistentFlags().BoolVar(&histJSON, "json", false, "print JSON")
}
