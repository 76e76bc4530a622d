package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/intellidash-cli/internal/ai"
	"github.com/KaramelBytes/intellidash-cli/internal/analysis"
	"github.com/KaramelBytes/intellidash-cli/internal/chart"
	"github.com/KaramelBytes/intellidash-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/intellidash-cli/internal/config"
	"github.com/KaramelBytes/intellidash-cli/internal/pipeline"
	"github.com/KaramelBytes/intellidash-cli/internal/store"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	BaseURL      string
	OllamaHost   string
}

// settings returns the loaded configuration, or the built-in defaults when
// loading failed.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Defaults()
}

func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && c.DefaultProvider != "" {
		providerName = strings.ToLower(c.DefaultProvider)
	}
	switch providerName {
	case "":
		providerName = ai.ProviderOpenAI
	case "local":
		providerName = ai.ProviderOllama
	case "google":
		providerName = ai.ProviderGemini
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.ResolveAPIKey(providerName),
		BaseURL:     c.BaseURL,
	}
	if opts.BaseURL != "" {
		rc.BaseURL = opts.BaseURL
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = c.OllamaHost
		}
		rc.Host = host
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return client, providerName, nil
}

func selectModel(c *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return ai.ResolveModel(provider, c.DefaultModel)
}

// buildCollaborator wires the configured runtime as the analysis
// collaborator. It returns nil when offline is set.
func buildCollaborator(c *cfgpkg.Global, opts runtimeOptions, offline bool) (analysis.Collaborator, string, error) {
	if offline {
		return nil, "", nil
	}
	rt, provider, err := buildRuntime(c, opts)
	if err != nil {
		return nil, provider, err
	}
	model := selectModel(c, provider, opts.ModelFlag)
	p := ai.NewPrompter(rt, model)
	p.Temperature = c.Temperature
	return p, provider + "/" + model, nil
}

// pipelineDeps maps configuration onto stage options. strategy overrides
// the configured missing-value strategy when set.
func pipelineDeps(c *cfgpkg.Global, collab analysis.Collaborator, strategy string) (pipeline.Deps, error) {
	if strategy == "" {
		strategy = c.MissingStrategy
	}
	s, err := clean.ParseStrategy(strategy)
	if err != nil {
		return pipeline.Deps{}, err
	}
	co := clean.DefaultOptions()
	co.Strategy = s
	if c.CoerceThreshold > 0 {
		co.CoerceThreshold = c.CoerceThreshold
	}

	ao := analysis.DefaultOptions()
	if c.SampleRows > 0 {
		ao.SampleRows = c.SampleRows
	}
	if limits := c.ChartLimits(); len(limits) > 0 {
		ao.Plan.ChartTypes = limits
	}
	if c.MinCharts > 0 {
		ao.Plan.MinCharts = c.MinCharts
	}
	if c.MaxCharts > 0 {
		ao.Plan.MaxCharts = c.MaxCharts
	}

	return pipeline.Deps{
		Collaborator: collab,
		Clean:        co,
		Analysis:     ao,
		Chart:        chart.Options{MaxDensity: c.MaxDensity, Units: c.Units},
		Logger:       logger,
	}, nil
}

func openHistory(c *cfgpkg.Global) (*store.Store, error) {
	if c.HistoryDB == "" {
		dir, err := cfgpkg.Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	return store.Open(c.HistoryDB)
}
