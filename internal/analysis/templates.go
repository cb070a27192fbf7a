package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sparklens/internal/logparse"
)

// Every template shares one response contract: the provider must answer with
// a single JSON object using these keys. Parsing in response.go depends on
// this envelope staying uniform across analysis types.
const responseContract = `Format your response as a single JSON object with exactly these keys:
- summary (string)
- root_cause (string or null)
- severity (string: "low", "medium", "high", "critical")
- recommendations (array of objects: {title, description, priority, category})
- config_suggestions (array of objects: {config_key, current_value, suggested_value, reason, impact})`

var templates = map[Type]string{
	TypeFull: `You are an expert Apache Spark engineer performing a comprehensive log analysis.

## Execution Context:
{{EXECUTION_CONTEXT}}

## Entry Counts by Level:
{{LEVEL_COUNTS}}

## Log Entries:
{{LOG_ENTRIES}}

## Provide a Complete Analysis:

### 1. Summary
Brief overview of the application's health and main issues.

### 2. Root Cause Analysis
For each error found: what happened, why it happened, severity level.

### 3. Recommendations
Prioritized list of actions to resolve issues.

### 4. Spark Configuration Suggestions
Specific configuration changes with expected impact.

{{RESPONSE_CONTRACT}}`,

	TypeRootCause: `You are an expert Apache Spark engineer analyzing Spark application logs.

Analyze the following log entries and identify the root cause of any errors or issues.

## Execution Context:
{{EXECUTION_CONTEXT}}

## Log Entries:
{{LOG_ENTRIES}}

## Your Analysis Should Include:
1. **Root Cause**: What is the primary cause of the issue?
2. **Contributing Factors**: Any secondary issues that contributed
3. **Severity Assessment**: Rate severity (low/medium/high/critical)
4. **Evidence**: Point to specific log lines that support your analysis

{{RESPONSE_CONTRACT}}`,

	TypeMemoryIssues: `You are an expert Apache Spark engineer specializing in memory optimization.

Analyze the following Spark logs for memory-related issues.

## Execution Context:
{{EXECUTION_CONTEXT}}

## Log Entries:
{{LOG_ENTRIES}}

## Analyze For:
1. **OutOfMemoryError occurrences**
2. **GC overhead issues**
3. **Memory pressure indicators**
4. **Executor memory problems**
5. **Driver memory issues**

For each issue describe the problem, its root cause, and the memory
configuration changes that would fix it.

{{RESPONSE_CONTRACT}}`,

	TypePerformance: `You are an expert Apache Spark engineer specializing in performance tuning.

Analyze the following Spark logs for performance bottlenecks.

## Execution Context:
{{EXECUTION_CONTEXT}}

## Log Entries:
{{LOG_ENTRIES}}

## Analyze For:
1. **Shuffle operations** that are taking too long
2. **Data skew** indicators
3. **Serialization overhead**
4. **Task scheduling delays**
5. **Disk spills**
6. **Network bottlenecks**

For each issue describe its location in the logs, the root cause, the
performance impact, and optimization recommendations.

{{RESPONSE_CONTRACT}}`,

	TypeConfigOptimization: `You are an expert Apache Spark engineer.

Based on the following Spark logs, recommend configuration optimizations.

## Execution Context:
{{EXECUTION_CONTEXT}}

## Log Entries:
{{LOG_ENTRIES}}

## Current Issues Detected:
{{ISSUES_SUMMARY}}

Focus on:
1. Memory settings
2. Shuffle settings
3. Parallelism settings
4. Serialization settings
5. Dynamic allocation settings

For each suggestion include the configuration key (e.g. spark.executor.memory),
the current value if detectable, the recommended value, the reason, and the
expected impact.

{{RESPONSE_CONTRACT}}`,
}

// Registry renders prompts for the known analysis types under a token budget.
type Registry struct {
	tokenBudget int
}

// NewRegistry creates a registry. tokenBudget caps the rendered log excerpt;
// values below 1 fall back to 8000.
func NewRegistry(tokenBudget int) *Registry {
	if tokenBudget < 1 {
		tokenBudget = 8000
	}
	return &Registry{tokenBudget: tokenBudget}
}

// Render produces the prompt for a request. Entry selection is deterministic:
// the same request always renders the same prompt, so results are
// reproducible under retry.
func (r *Registry) Render(req Request) (string, error) {
	tmpl, ok := templates[req.Type]
	if !ok {
		return "", fmt.Errorf("unknown analysis type %q", req.Type)
	}

	selected := r.selectEntries(req.Entries)
	replacer := strings.NewReplacer(
		"{{LOG_ENTRIES}}", formatEntries(selected),
		"{{LEVEL_COUNTS}}", formatLevelCounts(req.Entries),
		"{{EXECUTION_CONTEXT}}", formatContext(req.Context),
		"{{ISSUES_SUMMARY}}", formatIssues(req.Entries),
		"{{RESPONSE_CONTRACT}}", responseContract,
	)
	return replacer.Replace(tmpl), nil
}

// selectEntries fits entries into the token budget. Error-level entries win
// in input order, then the remainder fills most-recent-first. The selection
// is re-sorted by line number so the excerpt reads chronologically.
func (r *Registry) selectEntries(entries []*logparse.LogEntry) []*logparse.LogEntry {
	budget := r.tokenBudget
	var selected []*logparse.LogEntry

	take := func(e *logparse.LogEntry) bool {
		cost := estimateTokens(formatEntry(e))
		if cost > budget {
			return false
		}
		budget -= cost
		selected = append(selected, e)
		return true
	}

	taken := make(map[int]bool, len(entries))
	for _, e := range entries {
		if !e.Level.IsError() {
			continue
		}
		if !take(e) {
			break
		}
		taken[e.LineNumber] = true
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Level.IsError() || taken[e.LineNumber] {
			continue
		}
		if !take(e) {
			break
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].LineNumber < selected[j].LineNumber
	})
	return selected
}

// estimateTokens approximates provider tokenization at four characters per
// token. Exact counts vary per provider; the budget only needs a stable,
// conservative bound.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func formatEntry(e *logparse.LogEntry) string {
	var sb strings.Builder
	if e.Timestamp != nil {
		sb.WriteString("[" + e.Timestamp.Format("2006-01-02T15:04:05") + "] ")
	} else {
		sb.WriteString("[N/A] ")
	}
	sb.WriteString("[" + string(e.Level) + "]")
	if e.Component != "" {
		sb.WriteString(" [" + e.Component + "]")
	}
	sb.WriteString(" " + e.Message)
	if e.StackTrace != "" {
		sb.WriteString("\n" + e.StackTrace)
	}
	return sb.String()
}

func formatEntries(entries []*logparse.LogEntry) string {
	if len(entries) == 0 {
		return "(no log entries)"
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = formatEntry(e)
	}
	return strings.Join(lines, "\n")
}

func formatLevelCounts(entries []*logparse.LogEntry) string {
	counts := map[logparse.LogLevel]int{}
	for _, e := range entries {
		counts[e.Level]++
	}
	order := []logparse.LogLevel{
		logparse.LevelFatal, logparse.LevelError, logparse.LevelWarn,
		logparse.LevelInfo, logparse.LevelDebug, logparse.LevelUnknown,
	}
	var parts []string
	for _, level := range order {
		if n := counts[level]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", level, n))
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, ", ")
}

func formatContext(ctx logparse.ExecutionContext) string {
	return fmt.Sprintf("mode: %s, dominant language: %s", ctx.Mode, ctx.DominantLanguage)
}

// formatIssues summarizes error categories as JSON for the config template.
func formatIssues(entries []*logparse.LogEntry) string {
	counts := map[string]int{}
	for _, e := range entries {
		if e.Level.IsError() && e.Category != "" {
			counts[e.Category]++
		}
	}
	if len(counts) == 0 {
		return "No categorized issues found"
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "No categorized issues found"
	}
	return string(data)
}
