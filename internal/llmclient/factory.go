package llmclient

import (
	"context"
	"fmt"
	"time"

	"sparklens/internal/config"
	"sparklens/internal/logging"
)

// New constructs a client for the named provider. Unknown providers are a
// configuration error, never a silent fallback.
func New(ctx context.Context, provider Provider, settings config.ProviderSettings, timeout time.Duration) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil
	case ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, settings.APIKey, settings.Model)
	case ProviderOpenRouter:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil
	case ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// FromConfig resolves the provider (explicit id, or configured default with
// credential detection when empty) and constructs its client.
func FromConfig(ctx context.Context, cfg *config.Config, provider string) (Client, error) {
	if provider == "" {
		detected, ok := cfg.DetectProvider()
		if !ok {
			return nil, fmt.Errorf("no provider configured: set an API key or name a provider explicitly")
		}
		provider = detected
	}
	p := Provider(provider)
	if !p.Known() {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	logging.API("constructing %s client", p)
	return New(ctx, p, cfg.LLM.Settings(provider), cfg.LLM.TimeoutDuration())
}
