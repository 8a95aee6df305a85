// Package config loads and hot-reloads plancheck configuration from YAML
// and PLANCHECK_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tbrennem-source/plancheck/internal/providers"
	"github.com/tbrennem-source/plancheck/internal/usage"
)

// Config is the full plancheck configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Jobs     JobsConfig     `mapstructure:"jobs" yaml:"jobs"`
}

// ProviderConfig configures the vision provider.
type ProviderConfig struct {
	Type           string `mapstructure:"type" yaml:"type"`
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit      int    `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	Mode                 string  `mapstructure:"mode" yaml:"mode"`
	DPI                  int     `mapstructure:"dpi" yaml:"dpi"`
	MaxTokens            int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	InputCostPerMillion  float64 `mapstructure:"input_cost_per_million" yaml:"input_cost_per_million"`
	OutputCostPerMillion float64 `mapstructure:"output_cost_per_million" yaml:"output_cost_per_million"`
}

// JobsConfig tunes the worker pool and stale recovery.
type JobsConfig struct {
	Workers              int `mapstructure:"workers" yaml:"workers"`
	StaleAfterMinutes    int `mapstructure:"stale_after_minutes" yaml:"stale_after_minutes"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" yaml:"sweep_interval_minutes"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("provider", defaults.Provider)
	viper.SetDefault("analysis", defaults.Analysis)
	viper.SetDefault("jobs", defaults.Jobs)

	viper.SetEnvPrefix("PLANCHECK")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.plancheck")
	}

	// Missing config file is fine; defaults and env cover it.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot reloading of the configuration file.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}
		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ProviderClientConfig converts the provider section into a client config,
// resolving ${ENV_VAR} references in the API key.
func (c *Config) ProviderClientConfig() providers.OpenAIConfig {
	return providers.OpenAIConfig{
		APIKey:     ResolveEnvVars(c.Provider.APIKey),
		Model:      c.Provider.Model,
		BaseURL:    c.Provider.BaseURL,
		RateLimit:  c.Provider.RateLimit,
		MaxRetries: c.Provider.MaxRetries,
	}
}

// CallTimeout returns the per-call timeout.
func (c *Config) CallTimeout() time.Duration {
	if c.Provider.TimeoutSeconds <= 0 {
		return providers.DefaultTimeout
	}
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// Rates returns the token pricing for cost estimation.
func (c *Config) Rates() usage.Rates {
	rates := usage.Rates{
		InputPerMillion:  c.Analysis.InputCostPerMillion,
		OutputPerMillion: c.Analysis.OutputCostPerMillion,
	}
	if rates == (usage.Rates{}) {
		return usage.DefaultRates
	}
	return rates
}

// WriteDefault writes the default configuration to the given path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte(`# plancheck configuration
# The API key uses ${ENV_VAR} syntax to reference an environment variable.
# Set it in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
