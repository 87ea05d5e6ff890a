// Package store provides SQLite-backed durable storage for the local data layer.
//
// The store is a flat key/value space: every table of the data layer lives under a
// single key whose value is the serialized text of the whole collection. One
// database file is one origin; every process that opens the same file shares the
// same tables.
//
// # Versions
//
// Each entry carries a version that increases by one on every write. Unconditional
// writes (Put) ignore it. Batched writes (PutBatch) may assert the version they
// read, which turns a read-modify-write cycle into a compare-and-swap:
//   - expected version 0 means the key must not exist yet
//   - a mismatch on any key aborts the whole batch with ErrVersionConflict
//
// # Quota
//
// A store may be opened with a byte quota covering the sum of all stored values.
// Writes that would exceed it fail with ErrQuotaExceeded and leave the prior value
// in place. SQLITE_FULL from the engine is reported the same way.
//
// # Database Configuration
//
//   - WAL mode: readers in other processes are not blocked by a writer
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks held by other processes up to 5 seconds
package store
