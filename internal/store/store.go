// Package store persists parsed log files, their entries, and analysis
// results in SQLite. Re-ingesting the same file produces a new independent
// record set; there are no merge semantics.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sparklens/internal/analysis"
	"sparklens/internal/logging"
	"sparklens/internal/logparse"
)

// Store wraps the SQLite database. Safe for concurrent use; SQLite access is
// serialized through a single connection.
type Store struct {
	db   *sql.DB
	path string
}

// LogFile is one ingested file's record.
type LogFile struct {
	ID               int64
	Filename         string
	SizeBytes        int64
	Mode             logparse.SparkMode
	DominantLanguage logparse.SourceLanguage
	EntryCount       int
	ErrorCount       int
	IngestedAt       time.Time
}

// SavedResult is one persisted analysis outcome.
type SavedResult struct {
	ID        int64
	LogFileID int64
	Type      analysis.Type
	Result    *analysis.Result
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS log_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	mode TEXT NOT NULL,
	dominant_language TEXT NOT NULL,
	entry_count INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	ingested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS log_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	log_file_id INTEGER NOT NULL REFERENCES log_files(id) ON DELETE CASCADE,
	line_number INTEGER NOT NULL,
	timestamp TIMESTAMP,
	level TEXT NOT NULL,
	component TEXT,
	executor_id TEXT,
	message TEXT NOT NULL,
	stack_trace TEXT,
	source_language TEXT NOT NULL,
	exception_type TEXT,
	category TEXT,
	lines INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_file_line ON log_entries(log_file_id, line_number);
CREATE INDEX IF NOT EXISTS idx_entries_file_level ON log_entries(log_file_id, level);

CREATE TABLE IF NOT EXISTS analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	log_file_id INTEGER NOT NULL REFERENCES log_files(id) ON DELETE CASCADE,
	analysis_type TEXT NOT NULL,
	provider TEXT NOT NULL,
	severity TEXT NOT NULL,
	result_json TEXT NOT NULL,
	processing_time_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_analyses_file ON analyses(log_file_id);
`

// Open initializes the SQLite database at path, creating the schema when
// missing.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("pragma failed (%s): %v", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logging.Store("opened store at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveFile persists one parsed file with all its entries in a single
// transaction and returns the file record with its assigned id.
func (s *Store) SaveFile(ctx context.Context, filename string, sizeBytes int64, execCtx logparse.ExecutionContext, entries []*logparse.LogEntry) (*LogFile, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.SaveFile")
	defer timer.Stop()

	errorCount := 0
	for _, e := range entries {
		if e.Level.IsError() {
			errorCount++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO log_files (filename, size_bytes, mode, dominant_language, entry_count, error_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		filename, sizeBytes, string(execCtx.Mode), string(execCtx.DominantLanguage), len(entries), errorCount)
	if err != nil {
		return nil, fmt.Errorf("insert log file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("file id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO log_entries (log_file_id, line_number, timestamp, level, component, executor_id,
		                          message, stack_trace, source_language, exception_type, category, lines)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var ts interface{}
		if e.Timestamp != nil {
			ts = *e.Timestamp
		}
		if _, err := stmt.ExecContext(ctx, fileID, e.LineNumber, ts, string(e.Level),
			nullable(e.Component), nullable(e.ExecutorID), e.Message, nullable(e.StackTrace),
			string(e.SourceLanguage), nullable(e.ExceptionType), nullable(e.Category), e.Lines); err != nil {
			return nil, fmt.Errorf("insert entry at line %d: %w", e.LineNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	logging.Store("saved %s: %d entries (%d errors)", filename, len(entries), errorCount)
	return &LogFile{
		ID:               fileID,
		Filename:         filename,
		SizeBytes:        sizeBytes,
		Mode:             execCtx.Mode,
		DominantLanguage: execCtx.DominantLanguage,
		EntryCount:       len(entries),
		ErrorCount:       errorCount,
		IngestedAt:       time.Now(),
	}, nil
}

// GetFile loads one file record by id.
func (s *Store) GetFile(ctx context.Context, id int64) (*LogFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, size_bytes, mode, dominant_language, entry_count, error_count, ingested_at
		 FROM log_files WHERE id = ?`, id)
	var f LogFile
	var mode, lang string
	if err := row.Scan(&f.ID, &f.Filename, &f.SizeBytes, &mode, &lang, &f.EntryCount, &f.ErrorCount, &f.IngestedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("log file %d not found", id)
		}
		return nil, fmt.Errorf("query log file: %w", err)
	}
	f.Mode = logparse.SparkMode(mode)
	f.DominantLanguage = logparse.SourceLanguage(lang)
	return &f, nil
}

// ListFiles returns all ingested files, newest first.
func (s *Store) ListFiles(ctx context.Context) ([]*LogFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, size_bytes, mode, dominant_language, entry_count, error_count, ingested_at
		 FROM log_files ORDER BY ingested_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query log files: %w", err)
	}
	defer rows.Close()

	var files []*LogFile
	for rows.Next() {
		var f LogFile
		var mode, lang string
		if err := rows.Scan(&f.ID, &f.Filename, &f.SizeBytes, &mode, &lang, &f.EntryCount, &f.ErrorCount, &f.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan log file: %w", err)
		}
		f.Mode = logparse.SparkMode(mode)
		f.DominantLanguage = logparse.SourceLanguage(lang)
		files = append(files, &f)
	}
	return files, rows.Err()
}

// EntryFilter narrows GetEntries. Zero values mean no filtering.
type EntryFilter struct {
	// ErrorsOnly keeps only ERROR and FATAL entries.
	ErrorsOnly bool
	// Limit caps the number of returned entries. 0 means no cap.
	Limit int
}

// GetEntries loads a file's entries ordered by line number.
func (s *Store) GetEntries(ctx context.Context, fileID int64, filter EntryFilter) ([]*logparse.LogEntry, error) {
	query := `SELECT line_number, timestamp, level, component, executor_id, message,
	                 stack_trace, source_language, exception_type, category, lines
	          FROM log_entries WHERE log_file_id = ?`
	args := []interface{}{fileID}
	if filter.ErrorsOnly {
		query += ` AND level IN ('ERROR', 'FATAL')`
	}
	query += ` ORDER BY line_number`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []*logparse.LogEntry
	for rows.Next() {
		var e logparse.LogEntry
		var ts sql.NullTime
		var component, executor, stack, exception, category sql.NullString
		var level, lang string
		if err := rows.Scan(&e.LineNumber, &ts, &level, &component, &executor, &e.Message,
			&stack, &lang, &exception, &category, &e.Lines); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if ts.Valid {
			t := ts.Time
			e.Timestamp = &t
		}
		e.Level = logparse.LogLevel(level)
		e.Component = component.String
		e.ExecutorID = executor.String
		e.StackTrace = stack.String
		e.SourceLanguage = logparse.SourceLanguage(lang)
		e.ExceptionType = exception.String
		e.Category = category.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SaveResult persists one analysis outcome as JSON alongside its indexed
// fields.
func (s *Store) SaveResult(ctx context.Context, fileID int64, typ analysis.Type, result *analysis.Result) (int64, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (log_file_id, analysis_type, provider, severity, result_json, processing_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fileID, string(typ), string(result.Provider), string(result.Severity),
		string(data), result.ProcessingTime.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("analysis id: %w", err)
	}
	logging.Store("saved %s analysis %d for file %d (severity=%s)", typ, id, fileID, result.Severity)
	return id, nil
}

// GetResults loads a file's saved analyses, newest first.
func (s *Store) GetResults(ctx context.Context, fileID int64) ([]*SavedResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, log_file_id, analysis_type, result_json, created_at
		 FROM analyses WHERE log_file_id = ? ORDER BY created_at DESC, id DESC`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var results []*SavedResult
	for rows.Next() {
		var r SavedResult
		var typ, data string
		if err := rows.Scan(&r.ID, &r.LogFileID, &typ, &data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		r.Type = analysis.Type(typ)
		var result analysis.Result
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("unmarshal analysis %d: %w", r.ID, err)
		}
		r.Result = &result
		results = append(results, &r)
	}
	return results, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
