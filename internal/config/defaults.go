package config

import (
	"github.com/tbrennem-source/plancheck/internal/jobs"
	"github.com/tbrennem-source/plancheck/internal/render"
	"github.com/tbrennem-source/plancheck/internal/types"
	"github.com/tbrennem-source/plancheck/internal/usage"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:           "openai",
			Model:          "gpt-4o",
			APIKey:         "${OPENAI_API_KEY}",
			RateLimit:      60,
			MaxRetries:     3,
			TimeoutSeconds: 30,
		},
		Analysis: AnalysisConfig{
			Mode:                 string(types.ModeSample),
			DPI:                  render.DefaultDPI,
			MaxTokens:            2048,
			InputCostPerMillion:  usage.DefaultRates.InputPerMillion,
			OutputCostPerMillion: usage.DefaultRates.OutputPerMillion,
		},
		Jobs: JobsConfig{
			Workers:              jobs.DefaultWorkers,
			StaleAfterMinutes:    30,
			SweepIntervalMinutes: 5,
		},
	}
}
