package logparse

import "strings"

// assemblerState tracks where the record assembler is inside one record.
type assemblerState int

const (
	awaitingHead assemblerState = iota
	inMessage
	inStackTrace
)

// ClassifiedLine pairs a raw line with its role. Ephemeral: created and
// consumed within one parse pass, never persisted.
type ClassifiedLine struct {
	Number int
	Role   LineRole
	Text   string
}

// assembler folds classified lines into complete LogEntry records. Single
// pass, O(1) live state: only the current record's buffers are held at any
// time, so file size is unbounded.
type assembler struct {
	state   assemblerState
	current *LogEntry
	stack   []string
	emit    func(*LogEntry) error
}

func newAssembler(emit func(*LogEntry) error) *assembler {
	return &assembler{state: awaitingHead, emit: emit}
}

// Feed consumes one classified line. Transitions:
//
//	any state   + Head         -> close current record, open a new one
//	InMessage   + Continuation -> append to message (single-space join)
//	InMessage/InStackTrace + StackFrame -> append to stack buffer
//	InStackTrace + Continuation -> trace-adjacent note, stays in the stack
//	                               buffer; the message is never reopened
//	any state   + Blank        -> no-op (separator, not a boundary)
func (a *assembler) Feed(line ClassifiedLine) error {
	switch line.Role {
	case RoleHead:
		if err := a.close(); err != nil {
			return err
		}
		a.current = extractHead(line.Number, line.Text)
		a.current.Lines = 1
		a.state = inMessage

	case RoleContinuation:
		if a.current == nil {
			// Prose before the first head has no record to extend. It is
			// dropped, never fabricated into an entry: zero heads must
			// yield zero entries.
			return nil
		}
		a.current.Lines++
		if a.state == inStackTrace {
			a.stack = append(a.stack, line.Text)
		} else {
			a.current.Message += " " + line.Text
		}

	case RoleStackFrame:
		if a.current == nil {
			return nil
		}
		a.current.Lines++
		a.stack = append(a.stack, line.Text)
		a.state = inStackTrace

	case RoleBlank:
		// Separator only.
	}
	return nil
}

// Close flushes the final open record, if any. A stream ending mid-trace
// still yields the entry with whatever frames were captured.
func (a *assembler) Close() error {
	return a.close()
}

func (a *assembler) close() error {
	if a.current == nil {
		a.state = awaitingHead
		return nil
	}
	entry := a.current
	if len(a.stack) > 0 {
		entry.StackTrace = strings.Join(a.stack, "\n")
	}
	full := entry.Message
	if entry.StackTrace != "" {
		full += "\n" + entry.StackTrace
	}
	entry.ExceptionType = findException(full)
	if entry.Level.IsError() || entry.Level == LevelWarn || entry.ExceptionType != "" {
		entry.Category = categorize(full)
	}
	entry.SourceLanguage = detectEntryLanguage(full)

	a.current = nil
	a.stack = nil
	a.state = awaitingHead
	return a.emit(entry)
}
