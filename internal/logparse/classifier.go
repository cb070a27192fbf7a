package logparse

import (
	"regexp"
	"strings"
)

// LineRole is the classification assigned to a single raw line.
type LineRole int

const (
	// RoleHead opens a new record: a timestamp token followed by a level token.
	RoleHead LineRole = iota
	// RoleContinuation extends the previous record's message.
	RoleContinuation
	// RoleStackFrame belongs to an exception trace.
	RoleStackFrame
	// RoleBlank is a whitespace-only separator line.
	RoleBlank
)

func (r LineRole) String() string {
	switch r {
	case RoleHead:
		return "head"
	case RoleContinuation:
		return "continuation"
	case RoleStackFrame:
		return "stack_frame"
	case RoleBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Timestamp token alternatives, anchored at line start. A head line must
// begin with one of these; a level token anywhere later in the line is not
// enough to open a record (SQL text or user messages may embed "ERROR").
const (
	isoTimestamp   = `\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,6})?`
	sparkTimestamp = `\d{2}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}`
)

var (
	// headPattern: timestamp, then a bracketed or bare level token. First
	// match wins over every other rule, which resolves the head-vs-frame
	// ambiguity for lines like SQL error text containing " at ".
	headPattern = regexp.MustCompile(
		`^(` + isoTimestamp + `|` + sparkTimestamp + `)\s+\[?(DEBUG|INFO|WARN|WARNING|ERROR|FATAL|SEVERE)\]?\b`)

	// Stack frame shapes across the supported runtimes: JVM "at pkg.Cls.m(...)",
	// JVM cause markers and frame ellipsis, Python tracebacks, R call stacks.
	stackFramePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s+at\s+\S`),
		regexp.MustCompile(`^\s*Caused by:\s+\S`),
		regexp.MustCompile(`^\s+\.\.\.\s+\d+\s+more\b`),
		regexp.MustCompile(`^Traceback \(most recent call last\)`),
		regexp.MustCompile(`^\s+File "[^"]+", line \d+`),
		regexp.MustCompile(`^Error in .+ :`),
	}
)

// Classify assigns a role to one raw line. Pure function: rules apply in
// fixed precedence order (head, stack frame, blank, continuation) so the
// result depends only on the line text and the seenHead hint.
//
// seenHead tells the classifier whether any head has been observed earlier in
// the stream. A frame-shaped line arriving before the first head is
// reclassified as a head so orphan continuations always have a record to
// attach to; the assembler gives such records level UNKNOWN.
func Classify(line string, seenHead bool) LineRole {
	if headPattern.MatchString(line) {
		return RoleHead
	}
	for _, p := range stackFramePatterns {
		if p.MatchString(line) {
			if !seenHead {
				return RoleHead
			}
			return RoleStackFrame
		}
	}
	if strings.TrimSpace(line) == "" {
		return RoleBlank
	}
	return RoleContinuation
}

// isHeadShaped reports whether the line matched the timestamp+level head
// pattern, as opposed to being an orphan frame promoted to a head.
func isHeadShaped(line string) bool {
	return headPattern.MatchString(line)
}
