// Package config loads and validates sparklens configuration from YAML with
// environment-variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all sparklens configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Retry      RetryConfig      `yaml:"retry"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Signatures SignaturesConfig `yaml:"signatures"`
	Store      StoreConfig      `yaml:"store"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// RetryConfig governs provider invocation retries.
type RetryConfig struct {
	// MaxAttempts counts the first try plus retries. Only rate-limit and
	// timeout failures are retried.
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffBase string `yaml:"backoff_base"` // e.g. "1s"
	BackoffMax  string `yaml:"backoff_max"`  // e.g. "30s"
}

// BackoffBaseDuration parses BackoffBase, falling back to 1s.
func (r RetryConfig) BackoffBaseDuration() time.Duration {
	return parseDuration(r.BackoffBase, time.Second)
}

// BackoffMaxDuration parses BackoffMax, falling back to 30s.
func (r RetryConfig) BackoffMaxDuration() time.Duration {
	return parseDuration(r.BackoffMax, 30*time.Second)
}

// AnalysisConfig tunes the orchestrator and prompt rendering.
type AnalysisConfig struct {
	// TokenBudget caps the rendered log excerpt per prompt.
	TokenBudget int `yaml:"token_budget"`
	// ErrorThreshold is the error count above which inferred severity
	// escalates from MEDIUM to HIGH.
	ErrorThreshold int `yaml:"error_threshold"`
	// MaxEntries caps how many stored entries one analysis request loads.
	MaxEntries int `yaml:"max_entries"`
}

// SignatureEntry names one mode or language with its marker substrings.
// Declaration order in the YAML list is the tie-break order.
type SignatureEntry struct {
	Name    string   `yaml:"name"`
	Markers []string `yaml:"markers"`
}

// SignaturesConfig makes the detection tables extensible without code change.
// Empty lists select the compiled-in defaults.
type SignaturesConfig struct {
	Modes       []SignatureEntry `yaml:"modes"`
	Languages   []SignatureEntry `yaml:"languages"`
	PrefixLines int              `yaml:"prefix_lines"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig configures file acquisition.
type IngestConfig struct {
	WatchDir string `yaml:"watch_dir"`
	// Workers bounds parallel file parses. Each worker owns a private state
	// machine; there is no shared mutable parse state.
	Workers int `yaml:"workers"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "openai",
			Timeout:         "120s",
			MaxConcurrent:   4,
			Providers:       map[string]ProviderSettings{},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: "1s",
			BackoffMax:  "30s",
		},
		Analysis: AnalysisConfig{
			TokenBudget:    8000,
			ErrorThreshold: 10,
			MaxEntries:     500,
		},
		Signatures: SignaturesConfig{PrefixLines: 500},
		Store:      StoreConfig{Path: "sparklens.db"},
		Ingest:     IngestConfig{Workers: 4},
		Logging:    LoggingConfig{Level: "info", Dir: "."},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Analysis.TokenBudget < 1 {
		return fmt.Errorf("analysis.token_budget must be positive, got %d", c.Analysis.TokenBudget)
	}
	if c.LLM.MaxConcurrent < 1 {
		return fmt.Errorf("llm.max_concurrent must be >= 1, got %d", c.LLM.MaxConcurrent)
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
