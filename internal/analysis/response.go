package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"sparklens/internal/llmclient"
)

// envelope is the wire shape every template instructs the provider to emit.
// Loose field types absorb the common provider deviations (numbers for
// values, objects for summary) without losing information.
type envelope struct {
	Summary         json.RawMessage `json:"summary"`
	RootCause       json.RawMessage `json:"root_cause"`
	Severity        string          `json:"severity"`
	Recommendations []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		Category    string `json:"category"`
	} `json:"recommendations"`
	ConfigSuggestions []struct {
		Key            string          `json:"config_key"`
		CurrentValue   json.RawMessage `json:"current_value"`
		SuggestedValue json.RawMessage `json:"suggested_value"`
		Reason         string          `json:"reason"`
		Impact         string          `json:"impact"`
	} `json:"config_suggestions"`
}

// parseResponse extracts the JSON envelope from raw provider text. Providers
// wrap JSON in prose or markdown fences, so the parse window is the first '{'
// through the last '}'. Any failure to produce the expected shape is a
// MalformedResponseError carrying the raw text; the result is never repaired
// or guessed.
func parseResponse(provider llmclient.Provider, raw string) (*Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, &llmclient.MalformedResponseError{
			Provider: provider,
			Reason:   "no JSON object found in response",
			Raw:      raw,
		}
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw[start:end+1]), &env); err != nil {
		return nil, &llmclient.MalformedResponseError{
			Provider: provider,
			Reason:   "invalid JSON: " + err.Error(),
			Raw:      raw,
		}
	}

	summary := rawToString(env.Summary)
	if summary == "" {
		return nil, &llmclient.MalformedResponseError{
			Provider: provider,
			Reason:   "response missing summary",
			Raw:      raw,
		}
	}

	result := &Result{
		Summary:   summary,
		RootCause: rawToString(env.RootCause),
		Provider:  provider,
	}
	if sev, ok := ParseSeverity(strings.ToLower(env.Severity)); ok {
		result.Severity = sev
	}

	// Recommendations pass through verbatim against the contract the template
	// declared. A title-less item is a contract deviation and fails the whole
	// parse; nothing is substituted or silently dropped.
	for i, rec := range env.Recommendations {
		if rec.Title == "" {
			return nil, &llmclient.MalformedResponseError{
				Provider: provider,
				Reason:   fmt.Sprintf("recommendation %d missing title", i),
				Raw:      raw,
			}
		}
		result.Recommendations = append(result.Recommendations, Recommendation{
			Title:       rec.Title,
			Description: rec.Description,
			Priority:    strings.ToLower(rec.Priority),
			Category:    rec.Category,
		})
	}

	for _, sug := range env.ConfigSuggestions {
		if sug.Key == "" {
			continue
		}
		result.ConfigSuggestions = append(result.ConfigSuggestions, ConfigSuggestion{
			Key:            sug.Key,
			CurrentValue:   rawToString(sug.CurrentValue),
			SuggestedValue: rawToString(sug.SuggestedValue),
			Rationale:      sug.Reason,
			Impact:         sug.Impact,
		})
	}

	return result, nil
}

// rawToString renders a JSON value as a plain string: strings unquote,
// null becomes empty, anything else keeps its JSON text.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
