package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"sparklens/internal/logging"
)

// GeminiClient implements Client over the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. The SDK owns the HTTP transport;
// per-invocation deadlines come from the caller's context.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required: %w", ErrAuthFailed)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Invoke sends one generation request. Exactly one attempt per call.
func (c *GeminiClient) Invoke(ctx context.Context, prompt, modelHint string) (string, error) {
	model := c.model
	if modelHint != "" {
		model = modelHint
	}

	timer := logging.StartTimer(logging.CategoryAPI, "gemini.Invoke")
	result, err := c.client.Models.GenerateContent(ctx,
		model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
			MaxOutputTokens:   4096,
		},
	)
	timer.Stop()
	if err != nil {
		return "", mapGenAIError(err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", &MalformedResponseError{Provider: ProviderGemini, Reason: "no text content returned"}
	}
	logging.APIDebug("gemini completion model=%s chars=%d", model, len(text))
	return strings.TrimSpace(text), nil
}

// mapGenAIError translates SDK errors into the failure taxonomy.
func mapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderGemini, apiErr.Code, apiErr.Message)
	}
	return transportError(ProviderGemini, err)
}

func (c *GeminiClient) Capabilities() Capabilities {
	return Capabilities{SupportsStreaming: true, MaxTokens: 65536}
}

func (c *GeminiClient) Provider() Provider { return ProviderGemini }
