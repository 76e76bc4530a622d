package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", c.DefaultProvider)
	assert.Equal(t, "gpt-4o", c.DefaultModel)
	assert.Equal(t, "drop", c.MissingStrategy)
	assert.Equal(t, 200, c.MaxDensity)
	assert.Equal(t, 9, c.MinCharts)
	assert.Equal(t, [2]int{3, 3}, c.ChartLimits()["single_value"])
	assert.Equal(t, [2]int{0, 1}, c.ChartLimits()["scatter"])
	assert.NotEmpty(t, c.HistoryDB)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "default_provider: ollama\nmax_density: 50\nunits:\n  revenue: \"$-\"\nchart_types:\n  bar: [1, 4]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("INTELLIDASH_MISSING_STRATEGY", "fill_mean")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, 50, c.MaxDensity)
	assert.Equal(t, "fill_mean", c.MissingStrategy)
	assert.Equal(t, "$-", c.Units["revenue"])
	assert.Equal(t, [2]int{1, 4}, c.ChartLimits()["bar"])
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_density: 1\nmissing_strategy: guess\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxDensity")
	assert.Contains(t, err.Error(), "MissingStrategy must be one of: drop, fill_mean, fill_forward")
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, c.Set("default_provider", "Gemini"))
	require.NoError(t, c.Set("max_density", "120"))
	require.NoError(t, c.Set("units", "temp=°C"))
	require.NoError(t, c.Set("chart_types", "pie=0,2"))
	require.Error(t, c.Set("default_provider", "anthropic"))
	require.Error(t, c.Set("missing_strategy", "guess"))
	require.Error(t, c.Set("chart_types", "pie=3,1"))
	require.Error(t, c.Set("nope", "x"))
	// undo the rejected chart limit before saving
	require.NoError(t, c.Set("chart_types", "pie=0,2"))
	require.NoError(t, Save(c, path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", again.DefaultProvider)
	assert.Equal(t, 120, again.MaxDensity)
	assert.Equal(t, "°C", again.Units["temp"])
	assert.Equal(t, [2]int{0, 2}, again.ChartLimits()["pie"])
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GEMINI_API_KEY", "gm-env")
	c := &Global{}
	assert.Equal(t, "sk-env", c.ResolveAPIKey("openai"))
	assert.Equal(t, "gm-env", c.ResolveAPIKey("gemini"))
	assert.Equal(t, "", c.ResolveAPIKey("ollama"))
	c.APIKey = "sk-config"
	assert.Equal(t, "sk-config", c.ResolveAPIKey("openai"))
}

func TestDefaultsAreValid(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.8, c.CoerceThreshold)
	assert.Equal(t, 5, c.SampleRows)
}
