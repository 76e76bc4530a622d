package cmd

import (
	"fmt"
	"sort"
	"strings"

	cfgpkg "github.com/KaramelBytes/intellidash-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set IntelliDash configuration",
	Example: `  intellidash config show
  intellidash config set default_provider ollama
  intellidash config set units revenue=$-
  intellidash config set chart_types pie=0,2`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(w, "No config loaded")
			return nil
		}
		fmt.Fprintf(w, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(w, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(w, "default_model: %s\n", cfg.DefaultModel)
		if cfg.BaseURL != "" {
			fmt.Fprintf(w, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(w, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(w, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(w, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(w, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(w, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(w, "missing_strategy: %s\n", cfg.MissingStrategy)
		fmt.Fprintf(w, "coerce_threshold: %.2f\n", cfg.CoerceThreshold)
		fmt.Fprintf(w, "sample_rows: %d\n", cfg.SampleRows)
		fmt.Fprintf(w, "max_density: %d\n", cfg.MaxDensity)
		fmt.Fprintf(w, "min_charts: %d\n", cfg.MinCharts)
		fmt.Fprintf(w, "max_charts: %d\n", cfg.MaxCharts)
		limits := cfg.ChartLimits()
		fmt.Fprintln(w, "chart_types:")
		for _, k := range sortedKeys(limits) {
			fmt.Fprintf(w, "  %s: [%d, %d]\n", k, limits[k][0], limits[k][1])
		}
		if len(cfg.Units) > 0 {
			fmt.Fprintln(w, "units:")
			for _, k := range sortedKeys(cfg.Units) {
				fmt.Fprintf(w, "  %s: %s\n", k, cfg.Units[k])
			}
		}
		fmt.Fprintf(w, "history_db: %s\n", cfg.HistoryDB)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

Map keys take one entry per call: units as column=unit ("$-" or "-$" marks a
prefix, an empty unit removes the column) and chart_types as type=min,max.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := strings.ToLower(args[0]), args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
