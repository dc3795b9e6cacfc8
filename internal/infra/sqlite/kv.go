package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/udhar-khata/khata/internal/domain"
)

// ─── Key-Value Operations ───────────────────────────────────────────────────

// Load returns the value stored under key.
func (db *DB) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return value, true, nil
}

// Save inserts or replaces the value stored under key.
func (db *DB) Save(ctx context.Context, key string, value []byte) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last saved. ok is false if it never was.
func (db *DB) UpdatedAt(ctx context.Context, key string) (t time.Time, ok bool, err error) {
	var s string
	err = db.db.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load %s: %w", key, err)
	}
	t, err = time.Parse(time.DateTime, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse updated_at %q: %w", s, err)
	}
	return t, true, nil
}

// Compile-time check: ensure DB implements domain.KVStore.
var _ domain.KVStore = (*DB)(nil)
