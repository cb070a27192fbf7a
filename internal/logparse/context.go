package logparse

import "strings"

// Context detection is a heuristic scorer, not parsed from authoritative
// metadata. Each signature marker found on an observed line increments the
// counter for its mode or language; the highest-scoring non-zero candidate
// wins and ties are broken by table declaration order, so detection is
// deterministic for a given input and signature table.

// ModeSignature maps case-insensitive marker substrings to an execution mode.
type ModeSignature struct {
	Mode    SparkMode
	Markers []string
}

// LanguageSignature maps case-insensitive marker substrings to a source language.
type LanguageSignature struct {
	Language SourceLanguage
	Markers  []string
}

// DefaultModeSignatures returns the built-in mode table. Declaration order is
// the documented tie-break order.
func DefaultModeSignatures() []ModeSignature {
	return []ModeSignature{
		{ModeYARN, []string{"yarn", "applicationmaster", "container_"}},
		{ModeKubernetes, []string{"kubernetes", "k8s", "pod_"}},
		{ModeStandalone, []string{"spark://", "standalone"}},
		{ModeLocal, []string{"local["}},
	}
}

// DefaultLanguageSignatures returns the built-in language table.
func DefaultLanguageSignatures() []LanguageSignature {
	return []LanguageSignature{
		{LangPython, []string{"pyspark", "python", ".py", "traceback (most recent call last)"}},
		{LangScala, []string{"scala.", ".scala"}},
		{LangJava, []string{"java.", ".java", "at org.apache.spark"}},
		{LangSQL, []string{"spark.sql", "sparksql", "select ", "insert into", "create table"}},
		{LangR, []string{"sparkr", "rbackend"}},
	}
}

// Detector scores signature markers over a bounded prefix of the line stream
// so detection latency stays constant for arbitrarily large files.
type Detector struct {
	modes     []ModeSignature
	languages []LanguageSignature

	modeScores []int
	langScores []int

	limit    int
	observed int
}

// NewDetector builds a detector over the given signature tables. prefixLines
// bounds how many lines are scored; <= 0 selects the default of 500.
func NewDetector(modes []ModeSignature, languages []LanguageSignature, prefixLines int) *Detector {
	if len(modes) == 0 {
		modes = DefaultModeSignatures()
	}
	if len(languages) == 0 {
		languages = DefaultLanguageSignatures()
	}
	if prefixLines <= 0 {
		prefixLines = 500
	}
	return &Detector{
		modes:      modes,
		languages:  languages,
		modeScores: make([]int, len(modes)),
		langScores: make([]int, len(languages)),
		limit:      prefixLines,
	}
}

// Observe scores one raw line. Lines past the configured prefix are ignored.
func (d *Detector) Observe(line string) {
	if d.observed >= d.limit {
		return
	}
	d.observed++
	lower := strings.ToLower(line)
	for i, sig := range d.modes {
		for _, marker := range sig.Markers {
			if strings.Contains(lower, marker) {
				d.modeScores[i]++
			}
		}
	}
	for i, sig := range d.languages {
		for _, marker := range sig.Markers {
			if strings.Contains(lower, marker) {
				d.langScores[i]++
			}
		}
	}
}

// Context returns the detected execution context. All-zero scores yield
// UNKNOWN for the corresponding field.
func (d *Detector) Context() ExecutionContext {
	ctx := ExecutionContext{Mode: ModeUnknown, DominantLanguage: LangUnknown}
	if i, ok := argmax(d.modeScores); ok {
		ctx.Mode = d.modes[i].Mode
	}
	if i, ok := argmax(d.langScores); ok {
		ctx.DominantLanguage = d.languages[i].Language
	}
	return ctx
}

// argmax returns the first index holding the maximum positive score.
func argmax(scores []int) (int, bool) {
	best, bestIdx := 0, -1
	for i, s := range scores {
		if s > best {
			best, bestIdx = s, i
		}
	}
	return bestIdx, bestIdx >= 0
}

// detectEntryLanguage scores the default language table against a single
// record's full text. Entries in a mixed-language log may therefore carry a
// language that differs from the file's dominant one.
func detectEntryLanguage(text string) SourceLanguage {
	lower := strings.ToLower(text)
	sigs := defaultEntryLanguageSignatures
	scores := make([]int, len(sigs))
	for i, sig := range sigs {
		for _, marker := range sig.Markers {
			if strings.Contains(lower, marker) {
				scores[i]++
			}
		}
	}
	if i, ok := argmax(scores); ok {
		return sigs[i].Language
	}
	return LangUnknown
}

var defaultEntryLanguageSignatures = DefaultLanguageSignatures()
