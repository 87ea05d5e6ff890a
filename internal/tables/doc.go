// Package tables implements the Table Store and the generic Table API.
//
// A table is a named collection of JSON records stored as one value under
// namespace+name in the key/value store. Every write replaces the whole collection
// and publishes exactly one change notification.
//
// Reads are forgiving: a missing table or an unparseable value reads as an empty
// collection. Writes are strict: serialization errors are logged with DPanic, which
// panics under a development logger, and quota errors are returned to the caller.
//
// Plain Read followed by Write is not isolated; two contexts doing it concurrently
// can lose an update. Atomic runs a read-modify-write over any number of tables as
// one versioned commit and retries when another writer got there first. Table's
// Insert, Update and Delete go through Atomic; Replace is a plain Write.
package tables
