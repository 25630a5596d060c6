// Package llm wraps the model provider behind a tiered client. Discovery
// cycles issue one short judgment call per opportunity, so the cheap tier is
// the workhorse and the standard tier is reserved for structured extraction.
package llm

// ModelTier selects how much model capability a call gets.
type ModelTier string

const (
	// TierLite handles short judgment calls during scoring.
	TierLite ModelTier = "lite"
	// TierStandard handles structured extraction from solicitation documents.
	TierStandard ModelTier = "standard"
)

// Provider names an LLM backend.
type Provider string

const (
	// ProviderGemini is the Google Gemini backend.
	ProviderGemini Provider = "gemini"
)

// Config maps tiers to concrete model names for one provider.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the Gemini defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a tier. A tier without an explicit
// entry falls back to standard, then lite, so a partially filled map still
// resolves every call.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
