package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustPut stores value under key or fails the test.
func mustPut(t *testing.T, s *Store, key, value string) int64 {
	t.Helper()
	v, err := s.Put(context.Background(), key, value)
	if err != nil {
		t.Fatalf("Put(%q) failed: %v", key, err)
	}
	return v
}
