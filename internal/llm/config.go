// Package llm provides the language-model gateway used to analyze interview answers.
// Exactly one provider is active per process; callers only see the Client interface.
package llm

import (
	"fmt"
	"time"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap, fast calls
	TierLite ModelTier = "lite"
	// TierStandard is used for answer analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is for slower, higher quality analysis
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider and the only one implemented.
const ProviderGemini Provider = "gemini"

// Request defaults match the parameters the coaching prompt was tuned with.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultTemperature     = float32(0.7)
	DefaultMaxOutputTokens = int32(800)
)

// Config holds the model configuration for the application
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.0-flash-lite",
			TierStandard: "gemini-2.0-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Timeout:         DefaultTimeout,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := c.clone()
	newConfig.Models[tier] = model
	return newConfig
}

// WithTimeout returns a copy of the config with the per-call timeout replaced.
func (c *Config) WithTimeout(d time.Duration) *Config {
	newConfig := c.clone()
	newConfig.Timeout = d
	return newConfig
}

func (c *Config) clone() *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	return &newConfig
}

// ParseTier converts a flag value into a ModelTier.
func ParseTier(s string) (ModelTier, error) {
	switch ModelTier(s) {
	case TierLite, TierStandard, TierAdvanced:
		return ModelTier(s), nil
	default:
		return "", fmt.Errorf("unknown model tier %q (want lite, standard or advanced)", s)
	}
}
