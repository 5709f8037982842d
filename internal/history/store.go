// Package history journals correction requests to a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one journaled correction.
type Entry struct {
	ID         string    `json:"id"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Applied    bool      `json:"applied"`
	Reason     string    `json:"reason,omitempty"`
	Stop       string    `json:"stop,omitempty"`
	Generated  int       `json:"generated"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store wraps a SQLite database connection.
type Store struct {
	mu         sync.RWMutex
	db         *sql.DB
	insertStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Open opens (and initializes) the journal at path. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(filepath.Clean(path)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("history dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one writer; keeps :memory: databases on a single connection
	db.SetMaxOpenConns(1)
	if err := bootstrap(db); err != nil {
		db.Close()
		return nil, err
	}
	ins, err := db.Prepare(`INSERT INTO corrections
		(id, input, output, applied, reason, stop, generated, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	recent, err := db.Prepare(`SELECT id, input, output, applied, reason, stop, generated, duration_ms, created_at
		FROM corrections ORDER BY created_at DESC, rowid DESC LIMIT ?`)
	if err != nil {
		ins.Close()
		db.Close()
		return nil, fmt.Errorf("prepare select: %w", err)
	}
	return &Store{db: db, insertStmt: ins, recentStmt: recent}, nil
}

func bootstrap(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL;`); err != nil {
		return fmt.Errorf("configure history: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS corrections (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			applied INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			stop TEXT NOT NULL DEFAULT '',
			generated INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS corrections_created_at ON corrections (created_at);
	`); err != nil {
		return fmt.Errorf("create corrections table: %w", err)
	}
	return nil
}

// Record appends e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("entry id must not be empty")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.insertStmt == nil {
		return errors.New("history store is closed")
	}
	applied := 0
	if e.Applied {
		applied = 1
	}
	if _, err := s.insertStmt.ExecContext(ctx, e.ID, e.Input, e.Output, applied, e.Reason, e.Stop,
		e.Generated, e.DurationMS, e.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("record correction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recentStmt == nil {
		return nil, errors.New("history store is closed")
	}
	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			applied int
			ts      int64
		)
		if err := rows.Scan(&e.ID, &e.Input, &e.Output, &applied, &e.Reason, &e.Stop, &e.Generated, &e.DurationMS, &ts); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Applied = applied != 0
		e.CreatedAt = time.UnixMilli(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

// Close releases the statements and the database. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.insertStmt.Close()
	s.recentStmt.Close()
	err := s.db.Close()
	s.db, s.insertStmt, s.recentStmt = nil, nil, nil
	return err
}
