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

// OllamaClient implements Client for a local Ollama runtime. No credentials;
// reachability failures surface as transport errors.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOllamaConfig returns sensible defaults. Local models answer slower
// than hosted APIs, so the default timeout is generous.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
		Timeout: 300 * time.Second,
	}
}

// NewOllamaClient creates an Ollama client with custom config. Empty fields
// fall back to defaults.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	defaults := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Stream  bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Invoke sends one generate request with streaming disabled so the full
// response arrives as a single JSON document. Exactly one attempt per call.
func (c *OllamaClient) Invoke(ctx context.Context, prompt, modelHint string) (string, error) {
	model := c.model
	if modelHint != "" {
		model = modelHint
	}

	reqBody := ollamaRequest{
		Model:  model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	}
	reqBody.Options.Temperature = 0.2

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	timer := logging.StartTimer(logging.CategoryAPI, "ollama.Invoke")
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		return "", transportError(ProviderOllama, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderOllama, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(ProviderOllama, resp.StatusCode, string(respBody))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &MalformedResponseError{Provider: ProviderOllama, Reason: err.Error(), Raw: string(respBody)}
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: API error: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", &MalformedResponseError{Provider: ProviderOllama, Reason: "empty response", Raw: string(respBody)}
	}
	logging.APIDebug("ollama completion model=%s chars=%d", model, len(parsed.Response))
	return strings.TrimSpace(parsed.Response), nil
}

func (c *OllamaClient) Capabilities() Capabilities {
	return Capabilities{SupportsStreaming: false, MaxTokens: 4096}
}

func (c *OllamaClient) Provider() Provider { return ProviderOllama }
