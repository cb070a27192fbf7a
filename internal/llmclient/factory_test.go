package llmclient

import (
	"context"
	"testing"
	"time"

	"sparklens/internal/config"
)

func TestNewConstructsEachProvider(t *testing.T) {
	ctx := context.Background()
	settings := config.ProviderSettings{APIKey: "k", Model: "m"}

	tests := []struct {
		provider Provider
	}{
		{ProviderOpenAI},
		{ProviderAnthropic},
		{ProviderGemini},
		{ProviderOpenRouter},
		{ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			client, err := New(ctx, tt.provider, settings, 10*time.Second)
			if err != nil {
				t.Fatalf("New(%s) failed: %v", tt.provider, err)
			}
			if client.Provider() != tt.provider {
				t.Errorf("expected provider %s, got %s", tt.provider, client.Provider())
			}
			if client.Capabilities().MaxTokens <= 0 {
				t.Errorf("%s: MaxTokens must be positive", tt.provider)
			}
		})
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Provider("groq"), config.ProviderSettings{}, time.Second)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestFromConfigExplicitProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Providers["anthropic"] = config.ProviderSettings{APIKey: "ak"}

	client, err := FromConfig(context.Background(), cfg, "anthropic")
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if client.Provider() != ProviderAnthropic {
		t.Errorf("expected anthropic, got %s", client.Provider())
	}
}

func TestFromConfigDetection(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.DefaultProvider = "openai"
	cfg.LLM.Providers["openrouter"] = config.ProviderSettings{APIKey: "rk"}

	// Default has no key; detection falls through to the keyed provider.
	client, err := FromConfig(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if client.Provider() != ProviderOpenRouter {
		t.Errorf("expected detected openrouter, got %s", client.Provider())
	}
}

func TestFromConfigNoCredentials(t *testing.T) {
	cfg := config.Default()
	if _, err := FromConfig(context.Background(), cfg, ""); err == nil {
		t.Fatal("expected error when no provider has credentials")
	}
}

func TestFromConfigUnknownProvider(t *testing.T) {
	cfg := config.Default()
	if _, err := FromConfig(context.Background(), cfg, "watsonx"); err == nil {
		t.Fatal("expected error for unknown provider id")
	}
}
