package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// SetMetadata upserts a single key-value pair in the store-local config
// table, adapted from the teacher's internal/storage/sqlite/config.go.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.Execute(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// GetMetadata returns the value for key, or zerr.NoResult if absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.QueryRow(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", zerr.NoResult
	}
	if err != nil {
		return "", zerr.Wrap("store: get_metadata", err)
	}
	return value, nil
}

// GetAllMetadata returns every key-value pair, for diagnostics.
func (s *Store) GetAllMetadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.Query(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, zerr.Wrap("store: get_all_metadata scan", err)
		}
		out[k] = v
	}
	return out, zerr.Wrap("store: get_all_metadata rows", rows.Err())
}
