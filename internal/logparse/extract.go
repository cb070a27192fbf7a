package logparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Head-line field extraction. A fixed ordered set of patterns is applied when
// a head line opens a record; the first match per field wins and unmatched
// fields stay absent rather than defaulting to guessed values.

var (
	headFieldsPattern = regexp.MustCompile(
		`^(` + isoTimestamp + `|` + sparkTimestamp + `)\s+\[?(DEBUG|INFO|WARNING|WARN|ERROR|FATAL|SEVERE)\b\]?:?\s*(.*)$`)

	unixTimestampPattern = regexp.MustCompile(`timestamp[=:]\s*(\d{10,13})`)

	// Component forms, in precedence order: a bracketed logger name, a
	// Spark subsystem token ("Executor:", "TaskSetManager:"), or a dotted
	// log4j logger path ("org.apache.spark.storage.BlockManager:").
	componentBracket = regexp.MustCompile(`^\[([A-Za-z][\w.$-]*)\]\s*:?\s*`)
	componentSuffix  = regexp.MustCompile(`^((?:[A-Za-z$][\w$]*)?(?:Context|Executor|Driver|Manager|Scheduler|Master|Worker|Backend|Server|Utils)):\s+`)
	componentDotted  = regexp.MustCompile(`^([A-Za-z][\w$]*(?:\.[\w$]+)+):\s+`)

	executorPattern = regexp.MustCompile(`(?i)executor[_\s-]?(\d+|driver)\b`)

	exceptionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Caused by:\s+([\w.]+(?:Exception|Error))`),
		regexp.MustCompile(`\b([\w.]+(?:Exception|Error)):`),
	}
)

// errorCategories maps warning/error text to a coarse category. Ordered so
// categorization is deterministic when a line matches several groups.
var errorCategories = []struct {
	name     string
	patterns []*regexp.Regexp
}{
	{"memory", compileAll(`(?i)OutOfMemory|\bOOM\b|heap space|GC overhead`)},
	{"shuffle", compileAll(`(?i)shuffle|FetchFailed|ShuffleMapTask`)},
	{"network", compileAll(`(?i)connection|timed? ?out|refused|network`)},
	{"serialization", compileAll(`(?i)serializ|deserializ|NotSerializable`)},
	{"configuration", compileAll(`(?i)\bconfig|property|setting|parameter`)},
	{"permission", compileAll(`(?i)permission|access denied|authorization`)},
	{"storage", compileAll(`(?i)\bdisk\b|storage|hdfs|s3|file not found`)},
	{"executor", compileAll(`(?i)executor.*lost|executor.*failed|heartbeat`)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// extractHead parses a head-shaped line into a fresh LogEntry. The message is
// the payload after timestamp, level and component have been stripped.
func extractHead(lineNumber int, line string) *LogEntry {
	entry := &LogEntry{
		LineNumber:     lineNumber,
		Level:          LevelUnknown,
		SourceLanguage: LangUnknown,
		Message:        line,
	}

	m := headFieldsPattern.FindStringSubmatch(line)
	if m == nil {
		// Orphan frame promoted to head: keep the raw text as the message,
		// leave every other field absent.
		return entry
	}

	if ts := parseTimestamp(m[1]); ts != nil {
		entry.Timestamp = ts
	} else if um := unixTimestampPattern.FindStringSubmatch(line); um != nil {
		entry.Timestamp = parseUnixTimestamp(um[1])
	}

	entry.Level = normalizeLevel(m[2])

	rest := m[3]
	for _, p := range []*regexp.Regexp{componentBracket, componentSuffix, componentDotted} {
		cm := p.FindStringSubmatch(rest)
		if cm == nil {
			continue
		}
		// A dotted token ending in Exception/Error is an exception class
		// opening the payload, not a logger name; it stays in the message so
		// exception extraction still sees it.
		if p == componentDotted && isExceptionName(cm[1]) {
			break
		}
		entry.Component = cm[1]
		rest = rest[len(cm[0]):]
		break
	}
	entry.Message = rest

	if em := executorPattern.FindStringSubmatch(line); em != nil {
		entry.ExecutorID = em[1]
	}
	return entry
}

func normalizeLevel(tok string) LogLevel {
	switch strings.ToUpper(tok) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL", "SEVERE":
		return LevelFatal
	default:
		return LevelUnknown
	}
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"06/01/02 15:04:05",
}

func parseTimestamp(s string) *time.Time {
	// Log4j writes millisecond separators with a comma.
	s = strings.Replace(s, ",", ".", 1)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseUnixTimestamp(s string) *time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	if n > 1e12 { // milliseconds
		n /= 1000
	}
	t := time.Unix(n, 0).UTC()
	return &t
}

func isExceptionName(name string) bool {
	return strings.HasSuffix(name, "Exception") || strings.HasSuffix(name, "Error")
}

// findException returns the first exception class name in the text, or "".
func findException(text string) string {
	for _, p := range exceptionPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// categorize assigns the first matching error category, or "".
func categorize(text string) string {
	for _, c := range errorCategories {
		for _, p := range c.patterns {
			if p.MatchString(text) {
				return c.name
			}
		}
	}
	return ""
}
