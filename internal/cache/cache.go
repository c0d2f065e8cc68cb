// Package cache is a durable key-value snapshot store backed by its own
// SQLite file. The state store writes its last good snapshot here and reads
// it back when the server is unreachable. Read-only fallback: nothing in the
// cache is ever replayed as a write.
package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores an opaque value under key, replacing any previous value.
func (c *Cache) Put(key string, value []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO cache (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Get returns the value stored under key, or nil if the key is absent.
func (c *Cache) Get(key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return value, nil
}

func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec(`DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
