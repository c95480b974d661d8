// Package llm provides the language model client used to structure scraped
// content into knowledge-base sections, with model tiers and retry handling.
package llm

// ModelTier selects a model by how much reasoning a call needs.
type ModelTier string

const (
	// TierLite is for short, cheap calls.
	TierLite ModelTier = "lite"
	// TierStandard structures a single page or document into sections.
	TierStandard ModelTier = "standard"
	// TierAdvanced combines every processed source into the final knowledge document.
	TierAdvanced ModelTier = "advanced"
)

// Provider names an LLM backend.
type Provider string

// ProviderGemini is Google Gemini, the only backend wired today.
const ProviderGemini Provider = "gemini"

// DefaultTemperature keeps structured output close to the source text.
const DefaultTemperature float32 = 0.1

// Config selects the provider, the model per tier and the sampling settings.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string

	// Temperature is used when positive, otherwise DefaultTemperature.
	Temperature float32
	// MaxOutputTokens caps a response when positive.
	MaxOutputTokens int32
}

// DefaultConfig returns the Gemini configuration.
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig maps each tier to a Gemini 2.5 model.
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
	}
}

// GetModel returns the model for tier. A tier without a model falls back to
// the standard model, then the lite one; "" means nothing is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model := c.Models[t]; model != "" {
			return model
		}
	}
	return ""
}

func (c *Config) temperature() float32 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

// WithModel returns a copy of c that uses model for tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	clone := *c
	clone.Models = make(map[ModelTier]string, len(c.Models)+1)
	for t, m := range c.Models {
		clone.Models[t] = m
	}
	clone.Models[tier] = model
	return &clone
}
