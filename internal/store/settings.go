package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/kinfolk/internal/kv"
)

// SettingsStore is the SQLite-backed key/value store for preferences,
// feature flags and counters.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Incr adds delta to the integer stored at key in a single statement.
// Missing or empty keys start at zero. A value that is not a canonical
// integer is left untouched and kv.ErrNotCounter is returned.
func (s *SettingsStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, CAST(? AS TEXT), ?)
		 ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + ? AS TEXT), updated_at = excluded.updated_at
		 WHERE value = '' OR CAST(CAST(value AS INTEGER) AS TEXT) = value
		 RETURNING CAST(value AS INTEGER)`,
		key, delta, time.Now().UTC(), delta,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("value at %q: %w", key, kv.ErrNotCounter)
	}
	if err != nil {
		return 0, fmt.Errorf("incr setting %q: %w", key, err)
	}
	return n, nil
}

func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
