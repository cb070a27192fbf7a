package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, "openai", cfg.LLM.DefaultProvider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.LLM.TimeoutDuration())
	assert.Equal(t, time.Second, cfg.Retry.BackoffBaseDuration())
	assert.Equal(t, 30*time.Second, cfg.Retry.BackoffMaxDuration())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Analysis.TokenBudget)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparklens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  default_provider: anthropic
  timeout: 60s
  providers:
    anthropic:
      api_key: file-key
      model: claude-sonnet-4-20250514
retry:
  max_attempts: 5
  backoff_base: 500ms
analysis:
  token_budget: 4000
signatures:
  prefix_lines: 100
  modes:
    - name: YARN
      markers: ["yarn", "applicationmaster"]
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.DefaultProvider)
	assert.Equal(t, 60*time.Second, cfg.LLM.TimeoutDuration())
	assert.Equal(t, "file-key", cfg.LLM.Settings("anthropic").APIKey)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BackoffBaseDuration())
	assert.Equal(t, 4000, cfg.Analysis.TokenBudget)
	assert.Equal(t, 100, cfg.Signatures.PrefixLines)
	require.Len(t, cfg.Signatures.Modes, 1)
	assert.Equal(t, "YARN", cfg.Signatures.Modes[0].Name)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a mapping"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvFillsMissingCredentials(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.Settings("openrouter").APIKey)
}

func TestConfigWinsOverEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	path := filepath.Join(t.TempDir(), "sparklens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  providers:
    anthropic:
      api_key: file-key
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.LLM.Settings("anthropic").APIKey)
}

func TestDetectProvider(t *testing.T) {
	t.Run("default with key wins", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.DefaultProvider = "gemini"
		cfg.LLM.Providers["gemini"] = ProviderSettings{APIKey: "k"}
		cfg.LLM.Providers["openai"] = ProviderSettings{APIKey: "k2"}
		p, ok := cfg.DetectProvider()
		require.True(t, ok)
		assert.Equal(t, "gemini", p)
	})

	t.Run("priority order when default lacks key", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.DefaultProvider = "gemini"
		cfg.LLM.Providers["openrouter"] = ProviderSettings{APIKey: "k"}
		cfg.LLM.Providers["anthropic"] = ProviderSettings{APIKey: "k"}
		p, ok := cfg.DetectProvider()
		require.True(t, ok)
		assert.Equal(t, "anthropic", p, "anthropic outranks openrouter")
	})

	t.Run("ollama needs no key but must be configured", func(t *testing.T) {
		cfg := Default()
		_, ok := cfg.DetectProvider()
		assert.False(t, ok)

		cfg.LLM.Providers["ollama"] = ProviderSettings{Model: "llama3.1"}
		p, ok := cfg.DetectProvider()
		require.True(t, ok)
		assert.Equal(t, "ollama", p)
	})

	t.Run("ollama as explicit default", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.DefaultProvider = "ollama"
		p, ok := cfg.DetectProvider()
		require.True(t, ok)
		assert.Equal(t, "ollama", p)
	})
}

func TestParseDurationFallbacks(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("-5s", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
