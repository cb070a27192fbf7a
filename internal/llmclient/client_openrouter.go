package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sparklens/internal/logging"
)

// OpenRouterClient implements Client for OpenRouter's OpenAI-compatible API.
// It reuses the chat completions wire shapes and adds the attribution headers
// OpenRouter uses for ranking.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOpenRouterConfig returns sensible defaults.
func DefaultOpenRouterConfig(apiKey string) OpenRouterConfig {
	return OpenRouterConfig{
		APIKey:  apiKey,
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "anthropic/claude-3.5-sonnet",
		Timeout: 120 * time.Second,
	}
}

// NewOpenRouterClient creates an OpenRouter client with custom config. Empty
// fields fall back to defaults.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	defaults := DefaultOpenRouterConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &OpenRouterClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Invoke sends one chat completion request. Exactly one attempt per call.
func (c *OpenRouterClient) Invoke(ctx context.Context, prompt, modelHint string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openrouter: API key not configured: %w", ErrAuthFailed)
	}
	model := c.model
	if modelHint != "" {
		model = modelHint
	}

	body, err := json.Marshal(openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/sparklens/sparklens")
	req.Header.Set("X-Title", "sparklens")

	timer := logging.StartTimer(logging.CategoryAPI, "openrouter.Invoke")
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		return "", transportError(ProviderOpenRouter, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderOpenRouter, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(ProviderOpenRouter, resp.StatusCode, string(respBody))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &MalformedResponseError{Provider: ProviderOpenRouter, Reason: err.Error(), Raw: string(respBody)}
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", &MalformedResponseError{Provider: ProviderOpenRouter, Reason: "no completion returned", Raw: string(respBody)}
	}
	logging.APIDebug("openrouter completion model=%s tokens=%d", model, parsed.Usage.TotalTokens)
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *OpenRouterClient) Capabilities() Capabilities {
	return Capabilities{SupportsStreaming: true, MaxTokens: 8192}
}

func (c *OpenRouterClient) Provider() Provider { return ProviderOpenRouter }
