// Package logparse implements the log normalization engine: a streaming,
// single-pass transform from raw Spark application log text to structured
// entries. The engine is a composition of three parts: the line classifier
// (classifier.go), the record assembler state machine (assembler.go), and the
// execution-context detector (context.go). Parser (parser.go) wires them
// together behind one entry point.
package logparse

import "time"

// LogLevel is the normalized severity of a log record.
type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarn    LogLevel = "WARN"
	LevelError   LogLevel = "ERROR"
	LevelFatal   LogLevel = "FATAL"
	LevelUnknown LogLevel = "UNKNOWN"
)

// IsError reports whether the level indicates a failed operation.
func (l LogLevel) IsError() bool {
	return l == LevelError || l == LevelFatal
}

// SourceLanguage is the language the logging application was written in.
// Detected per file, but individual entries may carry a different language
// when a mixed-language job interleaves runtimes in one log.
type SourceLanguage string

const (
	LangPython  SourceLanguage = "PYTHON"
	LangScala   SourceLanguage = "SCALA"
	LangJava    SourceLanguage = "JAVA"
	LangSQL     SourceLanguage = "SQL"
	LangR       SourceLanguage = "R"
	LangUnknown SourceLanguage = "UNKNOWN"
)

// SparkMode is the execution mode the application ran under.
type SparkMode string

const (
	ModeStandalone SparkMode = "STANDALONE"
	ModeYARN       SparkMode = "YARN"
	ModeKubernetes SparkMode = "KUBERNETES"
	ModeLocal      SparkMode = "LOCAL"
	ModeUnknown    SparkMode = "UNKNOWN"
)

// LogEntry is the normalized record produced by the engine. One entry folds a
// head line plus any continuation and stack-frame lines that follow it.
type LogEntry struct {
	// LineNumber is the first physical line of the record. Unique within a
	// file and monotonically increasing across the emitted sequence.
	LineNumber int `json:"line_number"`

	// Timestamp is nil when the head line carried no parseable timestamp.
	// Never fabricated.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	Level      LogLevel `json:"level"`
	Component  string   `json:"component,omitempty"`
	ExecutorID string   `json:"executor_id,omitempty"`

	// Message is the head line payload with continuation lines appended
	// using a single-space join.
	Message string `json:"message"`

	// StackTrace holds the newline-joined stack-frame lines in original
	// order, empty when the record carried none.
	StackTrace string `json:"stack_trace,omitempty"`

	SourceLanguage SourceLanguage `json:"source_language"`

	// ExceptionType is the exception or error class name found in the record
	// (e.g. "java.lang.OutOfMemoryError"), empty when none matched.
	ExceptionType string `json:"exception_type,omitempty"`

	// Category is the coarse error category (memory, shuffle, network, ...)
	// assigned to warning/error records. Empty otherwise.
	Category string `json:"category,omitempty"`

	// Lines is the number of physical input lines folded into this record
	// (head + continuations + stack frames). Blank separators are not
	// counted. Together with the per-file Stats this guarantees that no
	// input line is lost without classification.
	Lines int `json:"lines"`
}

// HasStackTrace reports whether the record captured any stack frames.
func (e *LogEntry) HasStackTrace() bool { return e.StackTrace != "" }

// ExecutionContext is the per-file inferred runtime metadata. Computed once
// per parse pass and attached to the file, not to individual entries.
type ExecutionContext struct {
	Mode             SparkMode      `json:"mode"`
	DominantLanguage SourceLanguage `json:"dominant_language"`
}

// Stats counts every classified line of one parse pass. Heads equals the
// number of emitted entries; Blanks counts lines explicitly dropped as noise.
type Stats struct {
	Lines         int
	Heads         int
	Continuations int
	StackFrames   int
	Blanks        int
	Entries       int
}
