package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumohealth/tabsync/internal/logger"
)

// SQLiteStore is the transactional store variant: all keys live in a
// single kv table inside one SQLite database file. It trades the
// FileStore's per-key change notification for durable, transactional
// writes; contexts using it rely on the scheduler's periodic sync pass
// instead of watcher events.
type SQLiteStore struct {
	path string
	conn *sql.DB
}

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the database at path and initializes
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer, so limit to one connection
	// to prevent "database is locked" errors when several components
	// write concurrently.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createKVTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &SQLiteStore{path: path, conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		logger.Warn("store: read failed for %q: %v", key, err)
		return "", false
	}
	return value, true
}

// Set implements Store.
func (s *SQLiteStore) Set(key, value string) bool {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.conn.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, now,
	)
	if err != nil {
		logger.Warn("store: write failed for %q: %v", key, err)
		return false
	}
	return true
}

// Remove implements Store. Removing an absent key succeeds.
func (s *SQLiteStore) Remove(key string) bool {
	if _, err := s.conn.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		logger.Warn("store: remove failed for %q: %v", key, err)
		return false
	}
	return true
}
