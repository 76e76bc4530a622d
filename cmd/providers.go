package cmd

import (
	"fmt"

	"github.com/KaramelBytes/intellidash-cli/internal/ai"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List collaborator providers and the model each would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		w := cmd.OutOrStdout()
		for _, p := range ai.Providers() {
			mark := " "
			if p == c.DefaultProvider {
				mark = "*"
			}
			key := "no key needed"
			if p != ai.ProviderOllama {
				key = "key missing"
				if c.ResolveAPIKey(p) != "" {
					key = "key set"
				}
			}
			fmt.Fprintf(w, "%s %-7s model %-18s (%s)\n", mark, p, selectModel(c, p, ""), key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
