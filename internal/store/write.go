package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Write is one entry of a PutBatch.
//
// When Check is true the write only applies if the stored version equals Expect.
// Expect 0 asserts the key does not exist yet.
type Write struct {
	Key    string
	Value  string
	Check  bool
	Expect int64
}

// Put stores value under key, replacing any prior value, and returns the new version.
// The prior value is kept when the write fails.
func (s *Store) Put(ctx context.Context, key, value string) (int64, error) {
	versions, err := s.PutBatch(ctx, []Write{{Key: key, Value: value}})
	if err != nil {
		return 0, err
	}
	return versions[0], nil
}

// PutBatch applies every write in one transaction.
// Either all writes land or none do. Returns the new version of each key in order.
func (s *Store) PutBatch(ctx context.Context, writes []Write) ([]int64, error) {
	if len(writes) == 0 {
		return []int64{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if !w.Check {
			continue
		}
		current, err := versionOf(ctx, tx, w.Key)
		if err != nil {
			return nil, fmt.Errorf("put batch: %w", err)
		}
		if current != w.Expect {
			return nil, fmt.Errorf("put %s: have version %d, expected %d: %w", w.Key, current, w.Expect, ErrVersionConflict)
		}
	}

	if err := s.checkQuota(ctx, tx, writes); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	versions := make([]int64, len(writes))
	for i, w := range writes {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO entries (key, value, version, updated_at)
			VALUES (?, ?, COALESCE((SELECT version FROM retired WHERE key = ?), 0) + 1, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				version = entries.version + 1,
				updated_at = excluded.updated_at
			RETURNING version
		`, w.Key, w.Value, w.Key, now).Scan(&versions[i])
		if err != nil {
			return nil, fmt.Errorf("put %s: %w", w.Key, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put batch: commit: %w", classify(err))
	}
	return versions, nil
}

// Delete removes key. Deleting a missing key is not an error.
// A later Put of key continues from the deleted entry's version.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.deleteWhere(ctx, `key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
// Keys outside the prefix are untouched.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	n, err := s.deleteWhere(ctx, prefixMatch, prefix, prefix)
	if err != nil {
		return 0, fmt.Errorf("delete prefix %q: %w", prefix, err)
	}
	return n, nil
}

// prefixMatch selects keys starting with the bound prefix. Both sides count
// characters, so multibyte prefixes match.
const prefixMatch = `substr(key, 1, length(?)) = ?`

// deleteWhere retires the versions of matching entries, then removes them.
func (s *Store) deleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO retired (key, version)
		SELECT key, version FROM entries WHERE `+where+`
		ON CONFLICT(key) DO UPDATE SET version = excluded.version
	`, args...); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *Store) checkQuota(ctx context.Context, q querier, writes []Write) error {
	if s.quota <= 0 {
		return nil
	}

	// Last write wins when a batch names the same key twice.
	pending := make(map[string]int64, len(writes))
	keys := make([]string, 0, len(writes))
	for _, w := range writes {
		if _, seen := pending[w.Key]; !seen {
			keys = append(keys, w.Key)
		}
		pending[w.Key] = int64(len(w.Value))
	}

	others, err := usage(ctx, q, keys)
	if err != nil {
		return err
	}
	total := others
	for _, n := range pending {
		total += n
	}
	if total > s.quota {
		return fmt.Errorf("%w: %d bytes needed, quota is %d", ErrQuotaExceeded, total, s.quota)
	}
	return nil
}

func versionOf(ctx context.Context, q querier, key string) (int64, error) {
	var version int64
	err := q.QueryRowContext(ctx, `SELECT version FROM entries WHERE key = ?`, key).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("version of %s: %w", key, err)
	}
	return version, nil
}
