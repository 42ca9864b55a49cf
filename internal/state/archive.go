package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/normanking/socratic/internal/ecosystem"
	"github.com/normanking/socratic/internal/sot"
)

// HistoryArchive is an append-only SQLite table holding question history
// entries evicted from the in-memory ring. Nothing in the analysis path
// reads it back; it exists so long sessions keep their full trail.
type HistoryArchive struct {
	db *sql.DB
	mu sync.Mutex
}

// NewHistoryArchive opens (or creates) the archive database at dbPath.
// The parent directory is created if it doesn't exist.
func NewHistoryArchive(dbPath string) (*HistoryArchive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	a := &HistoryArchive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive database: %w", err)
	}

	return a, nil
}

// migrate creates the question_archive table if it doesn't exist.
func (a *HistoryArchive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS question_archive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		helpful INTEGER,
		paradigm TEXT NOT NULL,
		asked_at DATETIME,
		archived_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_question_archive_archived_at ON question_archive(archived_at DESC);
	`

	_, err := a.db.Exec(schema)
	return err
}

// Append writes evicted entries to the archive in one transaction.
func (a *HistoryArchive) Append(entries []ecosystem.QuestionHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO question_archive (question, helpful, paradigm, asked_at, archived_at)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, entry := range entries {
		var helpful sql.NullBool
		if entry.Helpful != nil {
			helpful = sql.NullBool{Bool: *entry.Helpful, Valid: true}
		}

		var askedAt *string
		if !entry.AskedAt.IsZero() {
			t := entry.AskedAt.UTC().Format(time.RFC3339Nano)
			askedAt = &t
		}

		if _, err := stmt.Exec(entry.Question, helpful, string(entry.Paradigm), askedAt, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert archive entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}

	return nil
}

// Count returns how many entries the archive holds.
func (a *HistoryArchive) Count() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var count int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM question_archive").Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive entries: %w", err)
	}
	return count, nil
}

// Recent returns up to limit archived entries, newest first.
func (a *HistoryArchive) Recent(limit int) ([]ecosystem.QuestionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(`
	SELECT question, helpful, paradigm, asked_at
	FROM question_archive
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var entries []ecosystem.QuestionHistoryEntry
	for rows.Next() {
		var entry ecosystem.QuestionHistoryEntry
		var helpful sql.NullBool
		var paradigm string
		var askedAt sql.NullString

		if err := rows.Scan(&entry.Question, &helpful, &paradigm, &askedAt); err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}

		if helpful.Valid {
			rated := helpful.Bool
			entry.Helpful = &rated
		}
		entry.Paradigm = sot.Paradigm(paradigm)
		if askedAt.Valid {
			entry.AskedAt, _ = time.Parse(time.RFC3339Nano, askedAt.String)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive entries: %w", err)
	}

	return entries, nil
}

// Close closes the archive database.
func (a *HistoryArchive) Close() error {
	return a.db.Close()
}
