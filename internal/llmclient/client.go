// Package llmclient provides the uniform invocation contract over the AI
// analysis providers. The provider set is closed and selected at
// configuration time: remote-hosted APIs (OpenAI, Anthropic, Gemini,
// OpenRouter) and a local runtime (Ollama) differ only in transport and
// credential handling, never in the contract surface.
package llmclient

import "context"

// systemPrompt frames every invocation. Templates carry the task-specific
// instructions; this only pins the role.
const systemPrompt = "You are an expert Apache Spark engineer and log analyst. Ground every statement in the supplied log excerpt."

// Provider identifies an analysis backend.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGemini     Provider = "gemini"
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
)

// Known returns whether p names a supported provider.
func (p Provider) Known() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOpenRouter, ProviderOllama:
		return true
	}
	return false
}

// Capabilities describes what a provider supports. The orchestrator reads
// MaxTokens when sizing prompts for providers stricter than the configured
// template budget.
type Capabilities struct {
	SupportsStreaming bool
	MaxTokens         int
}

// Client is the uniform provider contract. Invoke blocks on network I/O and
// must honor ctx cancellation; implementations perform exactly one attempt
// per call. Retry policy lives with the caller.
type Client interface {
	// Invoke sends the prompt and returns the raw response text. modelHint
	// overrides the configured model for this call when non-empty.
	Invoke(ctx context.Context, prompt, modelHint string) (string, error)

	Capabilities() Capabilities

	Provider() Provider
}
