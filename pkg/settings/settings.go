// Package settings provides the mutable key-value registry backing the
// news path's hop-radius lookup (ent/schema/setting.go).
package settings

import (
	"context"
	"database/sql"
	"strconv"
)

// NHopKey is the settings row key the news path reads to size
// FindWithinNHops calls.
const NHopKey = "N"

// DefaultNHops is used when no row exists yet.
const DefaultNHops = 2

// Store is a thin read/write wrapper around the settings table.
type Store struct {
	db *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the raw string value for key, or "" if unset.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set upserts key to value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}

// GetN returns the configured hop radius, falling back to DefaultNHops
// when unset or unparseable.
func (s *Store) GetN(ctx context.Context) (int, error) {
	raw, err := s.Get(ctx, NHopKey)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return DefaultNHops, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultNHops, nil
	}
	return n, nil
}
