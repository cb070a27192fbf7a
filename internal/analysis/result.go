// Package analysis turns normalized log entries into AI-generated diagnoses.
// It owns prompt rendering, provider retry policy, response parsing, and
// severity inference; transport lives in llmclient.
package analysis

import (
	"fmt"
	"time"

	"sparklens/internal/llmclient"
	"sparklens/internal/logparse"
)

// Type selects a prompt template and its response contract.
type Type string

const (
	TypeFull               Type = "full"
	TypeRootCause          Type = "root_cause"
	TypeMemoryIssues       Type = "memory_issues"
	TypePerformance        Type = "performance"
	TypeConfigOptimization Type = "config_optimization"
)

// Known returns whether t names a registered analysis type.
func (t Type) Known() bool {
	switch t {
	case TypeFull, TypeRootCause, TypeMemoryIssues, TypePerformance, TypeConfigOptimization:
		return true
	}
	return false
}

// Severity rates how bad the analyzed window looks.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity normalizes a provider-reported severity string. Unrecognized
// values report false so the caller can fall back to inference.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), true
	}
	return "", false
}

// Recommendation is one prioritized action item.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// ConfigSuggestion is one Spark property change.
type ConfigSuggestion struct {
	Key            string `json:"config_key"`
	CurrentValue   string `json:"current_value"`
	SuggestedValue string `json:"suggested_value"`
	Rationale      string `json:"reason"`
	Impact         string `json:"impact"`
}

// Request describes one analysis invocation. Entries are already selected and
// materialized by the caller; the request is immutable once submitted.
type Request struct {
	Entries  []*logparse.LogEntry
	Context  logparse.ExecutionContext
	Type     Type
	Provider llmclient.Provider
	// ModelHint overrides the provider's configured model when non-empty.
	ModelHint string
}

// Result is the complete outcome of one request. A request yields either a
// Result or a Failure, never a partially guessed Result.
type Result struct {
	Summary           string             `json:"summary"`
	RootCause         string             `json:"root_cause,omitempty"`
	Severity          Severity           `json:"severity"`
	Recommendations   []Recommendation   `json:"recommendations"`
	ConfigSuggestions []ConfigSuggestion `json:"config_suggestions"`
	Provider          llmclient.Provider `json:"provider"`
	ProcessingTime    time.Duration      `json:"processing_time"`
}

// Failure is the typed error for an analysis that could not complete. It
// carries enough detail for the caller to decide whether to retry manually.
type Failure struct {
	Provider llmclient.Provider
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("analysis failed after %d attempt(s) via %s: %v", f.Attempts, f.Provider, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
