// Package token provides SQLite-backed persistence for backend access tokens.
package token

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoToken is returned when no access token has been stored.
var ErrNoToken = errors.New("token: no access token stored")

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// accessKey is the row under which the backend bearer token is kept.
const accessKey = "access"

// Store is a small persisted key-value store for credentials.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the token database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("token: create dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("token: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("token: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores or replaces the access token.
func (s *Store) Put(value string) error {
	if value == "" {
		return fmt.Errorf("token: refusing to store empty token")
	}
	_, err := s.db.Exec(`
		INSERT INTO tokens (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		accessKey, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("token: store access token: %w", err)
	}
	return nil
}

// Token returns the stored access token, or ErrNoToken when absent.
func (s *Store) Token() (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM tokens WHERE name = ?`, accessKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("token: read access token: %w", err)
	}
	return value, nil
}

// Clear removes the stored access token. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM tokens WHERE name = ?`, accessKey); err != nil {
		return fmt.Errorf("token: clear access token: %w", err)
	}
	return nil
}
