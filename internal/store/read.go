package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one stored key.
type Entry struct {
	Key       string
	Value     string
	Version   int64
	UpdatedAt time.Time
}

// Get returns the entry stored under key.
// A missing key is reported as (Entry{}, false, nil).
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e       Entry
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, version, updated_at
		FROM entries
		WHERE key = ?
	`, key).Scan(&e.Key, &e.Value, &e.Version, &updated)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, true, nil
}

// Keys returns every key starting with prefix, sorted.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key
		FROM entries
		WHERE `+prefixMatch+`
		ORDER BY key COLLATE BINARY ASC
	`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Usage returns the number of bytes held by all stored values.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	return usage(ctx, s.db, nil)
}
