package config

import (
	"os"
	"time"
)

// LLMConfig selects and configures the analysis providers. Providers are
// known at configuration time; there is no runtime discovery.
type LLMConfig struct {
	// DefaultProvider is used when a request names no provider.
	DefaultProvider string `yaml:"default_provider"`
	// Timeout bounds a single provider invocation.
	Timeout string `yaml:"timeout"`
	// MaxConcurrent bounds in-flight invocations per provider.
	MaxConcurrent int `yaml:"max_concurrent"`
	// Providers holds per-provider credentials and model hints, keyed by
	// provider id (openai, anthropic, gemini, openrouter, ollama).
	Providers map[string]ProviderSettings `yaml:"providers"`
}

// ProviderSettings carries one provider's credentials and model hint.
type ProviderSettings struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// TimeoutDuration parses Timeout, falling back to 120s.
func (c LLMConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// Settings returns the settings for a provider id, zero-valued when absent.
func (c LLMConfig) Settings(provider string) ProviderSettings {
	return c.Providers[provider]
}

// envKeys maps provider ids to their conventional API key variables.
var envKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// applyEnv fills missing credentials from the environment. Config file
// values win over environment variables.
func (c *Config) applyEnv() {
	if c.LLM.Providers == nil {
		c.LLM.Providers = map[string]ProviderSettings{}
	}
	for provider, envVar := range envKeys {
		key := os.Getenv(envVar)
		if key == "" {
			continue
		}
		settings := c.LLM.Providers[provider]
		if settings.APIKey == "" {
			settings.APIKey = key
			c.LLM.Providers[provider] = settings
		}
	}
}

// DetectProvider returns the configured default provider when it has
// credentials, otherwise the first provider id (in a fixed priority order)
// holding an API key. Ollama needs no key and is the final fallback only
// when explicitly configured.
func (c *Config) DetectProvider() (string, bool) {
	if s := c.LLM.Settings(c.LLM.DefaultProvider); s.APIKey != "" || c.LLM.DefaultProvider == "ollama" {
		return c.LLM.DefaultProvider, true
	}
	for _, provider := range []string{"openai", "anthropic", "gemini", "openrouter"} {
		if c.LLM.Settings(provider).APIKey != "" {
			return provider, true
		}
	}
	if _, ok := c.LLM.Providers["ollama"]; ok {
		return "ollama", true
	}
	return "", false
}
