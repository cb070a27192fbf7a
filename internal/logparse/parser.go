package logparse

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"sparklens/internal/logging"
)

// maxLineBytes bounds a single physical line. Spark executors occasionally
// log serialized task payloads on one line; 1 MiB covers those without
// letting a corrupt file exhaust memory. Longer lines are truncated and the
// overflow discarded, never an abort.
const maxLineBytes = 1 << 20

// Parser is the normalization engine entry point: raw byte stream in,
// ordered structured records out. A Parser is immutable and safe for
// concurrent use; each Parse call owns its private state machine, so multiple
// files may be parsed in parallel with one shared Parser.
type Parser struct {
	modes       []ModeSignature
	languages   []LanguageSignature
	prefixLines int
}

// Option configures a Parser.
type Option func(*Parser)

// WithModeSignatures overrides the built-in mode signature table.
func WithModeSignatures(sigs []ModeSignature) Option {
	return func(p *Parser) { p.modes = sigs }
}

// WithLanguageSignatures overrides the built-in language signature table.
func WithLanguageSignatures(sigs []LanguageSignature) Option {
	return func(p *Parser) { p.languages = sigs }
}

// WithDetectionPrefix bounds how many lines the context detector scores.
func WithDetectionPrefix(lines int) Option {
	return func(p *Parser) { p.prefixLines = lines }
}

// NewParser builds a parser. With no options the compiled-in signature
// tables and detection prefix apply.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs one forward pass over r, invoking sink for every completed
// record in input order. It never seeks backward and holds only the current
// record in memory, so r may be arbitrarily large. A sink error aborts the
// pass and is returned verbatim.
//
// Unparseable lines never abort the file: the classifier's fallback rules
// fold them into the surrounding record or drop them as blanks, and a stream
// ending mid stack trace still yields the final entry with the frames
// captured so far.
func (p *Parser) Parse(ctx context.Context, r io.Reader, sink func(*LogEntry) error) (ExecutionContext, Stats, error) {
	timer := logging.StartTimer(logging.CategoryParser, "Parser.Parse")
	defer timer.Stop()

	var stats Stats
	detector := NewDetector(p.modes, p.languages, p.prefixLines)
	asm := newAssembler(func(e *LogEntry) error {
		stats.Entries++
		return sink(e)
	})

	reader := bufio.NewReaderSize(r, 64*1024)

	seenHead := false
	lineNumber := 0
	for {
		if err := ctx.Err(); err != nil {
			return detector.Context(), stats, err
		}
		line, truncated, readErr := readLine(reader)
		if readErr != nil && readErr != io.EOF {
			return detector.Context(), stats, fmt.Errorf("read line %d: %w", lineNumber+1, readErr)
		}
		if readErr == io.EOF && line == "" {
			break
		}
		lineNumber++
		if truncated {
			logging.Get(logging.CategoryParser).Warn("line %d exceeds %d bytes, truncated", lineNumber, maxLineBytes)
		}
		detector.Observe(line)

		role := Classify(line, seenHead)
		stats.Lines++
		switch role {
		case RoleHead:
			seenHead = true
			stats.Heads++
		case RoleContinuation:
			stats.Continuations++
		case RoleStackFrame:
			stats.StackFrames++
		case RoleBlank:
			stats.Blanks++
		}

		if err := asm.Feed(ClassifiedLine{Number: lineNumber, Role: role, Text: line}); err != nil {
			return detector.Context(), stats, err
		}
		if readErr == io.EOF {
			break
		}
	}
	if err := asm.Close(); err != nil {
		return detector.Context(), stats, err
	}

	execCtx := detector.Context()
	logging.ParserDebug("parsed %d lines into %d entries (heads=%d frames=%d blanks=%d) mode=%s lang=%s",
		stats.Lines, stats.Entries, stats.Heads, stats.StackFrames, stats.Blanks,
		execCtx.Mode, execCtx.DominantLanguage)
	return execCtx, stats, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is returned truncated with the overflow discarded up to the
// next newline, so one degenerate line cannot exhaust memory or fail the
// pass. The returned error is io.EOF exactly when the stream is done; a final
// unterminated line comes back alongside io.EOF.
func readLine(r *bufio.Reader) (string, bool, error) {
	var buf []byte
	truncated := false
	for {
		chunk, err := r.ReadSlice('\n')
		if truncated {
			// Discarding overflow until the terminator.
		} else if room := maxLineBytes - len(buf); len(chunk) > room {
			buf = append(buf, chunk[:room]...)
			truncated = true
		} else {
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return string(trimEOL(buf)), truncated, err
	}
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// ParseAll materializes the full entry sequence. Intended for tests and
// small inputs; production paths should stream through Parse.
func (p *Parser) ParseAll(ctx context.Context, r io.Reader) ([]*LogEntry, ExecutionContext, Stats, error) {
	var entries []*LogEntry
	execCtx, stats, err := p.Parse(ctx, r, func(e *LogEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, execCtx, stats, err
}
