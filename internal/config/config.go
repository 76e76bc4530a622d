package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider" validate:"oneof=openai ollama gemini"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model" validate:"required"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`

	// Pipeline
	MissingStrategy string  `mapstructure:"missing_strategy" yaml:"missing_strategy" validate:"oneof=drop fill_mean fill_forward"`
	CoerceThreshold float64 `mapstructure:"coerce_threshold" yaml:"coerce_threshold" validate:"gt=0,lte=1"`
	SampleRows      int     `mapstructure:"sample_rows" yaml:"sample_rows" validate:"gte=1"`
	MaxDensity      int     `mapstructure:"max_density" yaml:"max_density" validate:"gte=2"`
	MinCharts       int     `mapstructure:"min_charts" yaml:"min_charts" validate:"gte=1"`
	MaxCharts       int     `mapstructure:"max_charts" yaml:"max_charts" validate:"gtefield=MinCharts"`
	// ChartTypes bounds how many charts of each type a plan may contain.
	ChartTypes map[string][]int `mapstructure:"chart_types" yaml:"chart_types" validate:"dive,len=2,dive,gte=0"`
	// Units maps column names to display units; "$-" or "-$" marks a prefix.
	Units map[string]string `mapstructure:"units" yaml:"units,omitempty"`

	HistoryDB string `mapstructure:"history_db" yaml:"history_db"`
}

// Providers and strategies accepted by Set.
var (
	providers  = []string{"openai", "ollama", "gemini"}
	strategies = []string{"drop", "fill_mean", "fill_forward"}
)

// Dir returns ~/.intellidash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".intellidash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.intellidash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INTELLIDASH")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DefaultProvider = strings.ToLower(c.DefaultProvider)
	if c.HistoryDB == "" {
		if dir, err := Dir(); err == nil {
			c.HistoryDB = filepath.Join(dir, "history.db")
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Defaults returns the built-in configuration without reading any file or
// environment variable.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", "openai")
	v.SetDefault("default_model", "gpt-4o")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("missing_strategy", "drop")
	v.SetDefault("coerce_threshold", 0.8)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("max_density", 200)
	v.SetDefault("min_charts", 9)
	v.SetDefault("max_charts", 9)
	v.SetDefault("chart_types", map[string]any{
		"single_value": []int{3, 3},
		"line":         []int{0, 99},
		"bar":          []int{0, 99},
		"scatter":      []int{0, 1},
		"pie":          []int{0, 99},
	})
	v.SetDefault("history_db", "")
}

var validate = validator.New()

// Validate checks field constraints and reports every violation.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		for name, lim := range c.ChartTypes {
			if len(lim) == 2 && lim[0] > lim[1] {
				return fmt.Errorf("invalid config: chart_types.%s: min %d exceeds max %d", name, lim[0], lim[1])
			}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// Set assigns one key from its string form. Map-valued keys take
// "name=value" (units) or "name=min,max" (chart_types).
func (c *Global) Set(key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_provider":
		p := strings.ToLower(val)
		if !contains(providers, p) {
			return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(providers, ", "))
		}
		c.DefaultProvider = p
	case "default_model":
		c.DefaultModel = val
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "history_db":
		c.HistoryDB = val
	case "missing_strategy":
		if !contains(strategies, val) {
			return fmt.Errorf("invalid missing_strategy: %s (use %s)", val, strings.Join(strategies, ", "))
		}
		c.MissingStrategy = val
	case "temperature", "coerce_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", key, err)
		}
		if key == "temperature" {
			c.Temperature = f
		} else {
			c.CoerceThreshold = f
		}
	case "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
		"sample_rows", "max_density", "min_charts", "max_charts":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", key, err)
		}
		*c.intField(key) = i
	case "units":
		name, unit, ok := strings.Cut(val, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid units entry %q (use column=unit)", val)
		}
		if c.Units == nil {
			c.Units = map[string]string{}
		}
		if unit == "" {
			delete(c.Units, name)
		} else {
			c.Units[name] = unit
		}
	case "chart_types":
		name, lim, ok := strings.Cut(val, "=")
		lo, hi, ok2 := strings.Cut(lim, ",")
		if !ok || !ok2 || name == "" {
			return fmt.Errorf("invalid chart_types entry %q (use type=min,max)", val)
		}
		a, err1 := strconv.Atoi(strings.TrimSpace(lo))
		b, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid chart_types limits %q", lim)
		}
		if c.ChartTypes == nil {
			c.ChartTypes = map[string][]int{}
		}
		c.ChartTypes[name] = []int{a, b}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return c.Validate()
}

func (c *Global) intField(key string) *int {
	switch key {
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "sample_rows":
		return &c.SampleRows
	case "max_density":
		return &c.MaxDensity
	case "min_charts":
		return &c.MinCharts
	}
	return &c.MaxCharts
}

// ResolveAPIKey prefers the configured key and falls back to the
// provider's conventional environment variable.
func (c *Global) ResolveAPIKey(provider string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch strings.ToLower(provider) {
	case "gemini":
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// ChartLimits returns ChartTypes as [min, max] pairs.
func (c *Global) ChartLimits() map[string][2]int {
	out := make(map[string][2]int, len(c.ChartTypes))
	for name, lim := range c.ChartTypes {
		if len(lim) == 2 {
			out[name] = [2]int{lim[0], lim[1]}
		}
	}
	return out
}

func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
