// Package blocklist stores device labels that must never be mirrored.
package blocklist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Entry struct {
	Label     string
	Reason    string
	CreatedAt time.Time
}

type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the blocklist database at dbPath.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blocklist directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS blocklist (
		label TEXT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &DB{db: db}, nil
}

func (b *DB) Close() error {
	return b.db.Close()
}

// IsBlocked reports whether label is on the blocklist.
func (b *DB) IsBlocked(label string) (bool, error) {
	var exists int
	err := b.db.QueryRow("SELECT 1 FROM blocklist WHERE label = ?", label).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blocklist lookup %q: %w", label, err)
	}
	return exists == 1, nil
}

// Add blocks label. Blocking an already blocked label keeps the first reason.
func (b *DB) Add(label, reason string) error {
	_, err := b.db.Exec(
		"INSERT OR IGNORE INTO blocklist(label, reason) VALUES (?, ?)",
		label, reason,
	)
	if err != nil {
		return fmt.Errorf("block %q: %w", label, err)
	}
	return nil
}

// Remove unblocks label and reports whether it was blocked.
func (b *DB) Remove(label string) (bool, error) {
	res, err := b.db.Exec("DELETE FROM blocklist WHERE label = ?", label)
	if err != nil {
		return false, fmt.Errorf("unblock %q: %w", label, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unblock %q: %w", label, err)
	}
	return n > 0, nil
}

// List returns all entries ordered by label.
func (b *DB) List() ([]Entry, error) {
	rows, err := b.db.Query("SELECT label, reason, created_at FROM blocklist ORDER BY label")
	if err != nil {
		return nil, fmt.Errorf("list blocklist: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Label, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blocklist row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
