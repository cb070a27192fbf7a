package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClientInvoke(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  the analysis  "},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini"})
	out, err := client.Invoke(context.Background(), "analyze this", "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "the analysis" {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "analyze this" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestOpenAIClientModelHint(t *testing.T) {
	var gotReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Model: "default-model"})
	if _, err := client.Invoke(context.Background(), "p", "hinted-model"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if gotReq.Model != "hinted-model" {
		t.Errorf("expected model hint to override, got %q", gotReq.Model)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed},
		{"forbidden", http.StatusForbidden, ErrAuthFailed},
		{"gateway timeout", http.StatusGatewayTimeout, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Invoke(context.Background(), "p", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: expected %v in chain, got %v", tt.status, tt.want, err)
			}
		})
	}
}

func TestOpenAIClientMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Invoke(context.Background(), "p", "")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if malformed.Raw != "this is not json" {
		t.Errorf("raw response not preserved: %q", malformed.Raw)
	}
	if malformed.Provider != ProviderOpenAI {
		t.Errorf("expected openai provider, got %s", malformed.Provider)
	}
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Invoke(context.Background(), "p", "")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestOpenAIClientMissingKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{})
	_, err := client.Invoke(context.Background(), "p", "")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed for missing key, got %v", err)
	}
}

func TestOpenAIClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"choices":[{"message":{"content":"too late"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Invoke(context.Background(), "p", "")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestAnthropicClientInvoke(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "ak", BaseURL: server.URL})
	out, err := client.Invoke(context.Background(), "analyze", "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "part one part two" {
		t.Errorf("expected concatenated text blocks, got %q", out)
	}
	if gotKey != "ak" {
		t.Errorf("expected x-api-key header, got %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("expected anthropic-version header")
	}
	if gotReq.System == "" {
		t.Error("expected system prompt in request")
	}
}

func TestOllamaClientInvoke(t *testing.T) {
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"response":"local analysis","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "llama3.1"})
	out, err := client.Invoke(context.Background(), "analyze", "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "local analysis" {
		t.Errorf("unexpected response: %q", out)
	}
	if gotReq.Stream {
		t.Error("expected stream disabled")
	}
	if gotReq.System == "" {
		t.Error("expected system prompt in request")
	}
}

func TestOllamaClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	_, err := client.Invoke(context.Background(), "p", "")
	if err == nil {
		t.Fatal("expected error for API error payload")
	}
}

func TestOpenRouterClientHeaders(t *testing.T) {
	var gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		w.Write([]byte(`{"choices":[{"message":{"content":"routed"}}]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "rk", BaseURL: server.URL})
	out, err := client.Invoke(context.Background(), "p", "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "routed" {
		t.Errorf("unexpected response: %q", out)
	}
	if gotReferer == "" {
		t.Error("expected HTTP-Referer attribution header")
	}
}

func TestProviderKnown(t *testing.T) {
	for _, p := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOpenRouter, ProviderOllama} {
		if !p.Known() {
			t.Errorf("%s should be known", p)
		}
	}
	if Provider("groq").Known() {
		t.Error("unsupported provider should not be known")
	}
}
