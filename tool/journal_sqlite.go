package tool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteJournalSchema = `
CREATE TABLE IF NOT EXISTS dispatch_journal (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	success INTEGER NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	error_code TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	output_size INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS dispatch_journal_tool ON dispatch_journal (tool_name);`

const (
	defaultSQLiteJournalDir = ".petalcall"
	defaultSQLiteJournalDB  = "journal.db"
)

// SQLiteJournalConfig configures the SQLite-backed journal.
type SQLiteJournalConfig struct {
	DSN string
}

// SQLiteJournal persists dispatch entries in SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// DefaultSQLiteJournalPath returns ~/.petalcall/journal.db.
func DefaultSQLiteJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("tool: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultSQLiteJournalDir, defaultSQLiteJournalDB), nil
}

// NewSQLiteJournal opens (or creates) the journal database.
func NewSQLiteJournal(cfg SQLiteJournalConfig) (*SQLiteJournal, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("tool: sqlite journal dsn is required")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("tool: sqlite journal create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite journal open: %w", err)
	}

	// One connection serialises writers inside the process; busy_timeout
	// covers other processes sharing the file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite journal set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite journal set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteJournalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite journal create schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, entry JournalEntry) error {
	if j == nil || j.db == nil {
		return errors.New("tool: sqlite journal is nil")
	}

	success := 0
	if entry.Success {
		success = 1
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO dispatch_journal (request_id, tool_name, success, stage, error_code, started_at, duration_ms, output_size)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.ToolName,
		success,
		string(entry.Stage),
		entry.ErrorCode,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.DurationMS,
		entry.OutputSize,
	)
	if err != nil {
		return fmt.Errorf("tool: sqlite journal append: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("tool: sqlite journal is nil")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT request_id, tool_name, success, stage, error_code, started_at, duration_ms, output_size
FROM dispatch_journal
ORDER BY seq DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite journal query: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			entry   JournalEntry
			success int
			stage   string
			started string
		)
		if err := rows.Scan(&entry.RequestID, &entry.ToolName, &success, &stage, &entry.ErrorCode, &started, &entry.DurationMS, &entry.OutputSize); err != nil {
			return nil, fmt.Errorf("tool: sqlite journal scan: %w", err)
		}
		entry.Success = success == 1
		entry.Stage = Stage(stage)
		if entry.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("tool: sqlite journal parse started_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tool: sqlite journal rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
