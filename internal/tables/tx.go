package tables

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/store"
)

// Tx stages writes to several tables for one versioned commit.
type Tx struct {
	ctx    context.Context
	tables *Tables
	reads  map[string]Snapshot
	order  []string
	staged map[string][]byte
}

// Context returns the context Atomic was called with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Read returns the snapshot of table as of the first read in this attempt.
// Staged data is returned for tables already staged.
func (tx *Tx) Read(table string) (Snapshot, error) {
	if data, ok := tx.staged[table]; ok {
		return Snapshot{Table: table, Data: data, Version: tx.reads[table].Version}, nil
	}
	if snap, ok := tx.reads[table]; ok {
		return snap, nil
	}
	snap, err := tx.tables.Read(tx.ctx, table)
	if err != nil {
		return Snapshot{}, err
	}
	tx.reads[table] = snap
	return snap, nil
}

// Stage replaces table with records when the transaction commits.
// Staging a table twice keeps its first position in the notification order.
func (tx *Tx) Stage(table string, records any) error {
	data, err := tx.tables.encode(table, records)
	if err != nil {
		return err
	}
	if _, ok := tx.staged[table]; !ok {
		tx.order = append(tx.order, table)
	}
	tx.staged[table] = data
	return nil
}

// Atomic runs fn and commits its staged writes in one versioned batch.
//
// Every staged table that fn read through the Tx must be unchanged at commit.
// When another writer changed one, fn runs again on fresh snapshots, up to the
// configured attempt limit. Errors returned by fn abort without writing.
// After commit one notification is published per staged table, in staging order.
func (t *Tables) Atomic(ctx context.Context, fn func(*Tx) error) error {
	var (
		lastErr    error
		lastTables []string
	)
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		tx := &Tx{
			ctx:    ctx,
			tables: t,
			reads:  make(map[string]Snapshot),
			staged: make(map[string][]byte),
		}
		if err := fn(tx); err != nil {
			return err
		}
		if len(tx.order) == 0 {
			return nil
		}

		writes := make([]store.Write, 0, len(tx.order))
		for _, table := range tx.order {
			w := store.Write{Key: t.key(table), Value: string(tx.staged[table])}
			if snap, ok := tx.reads[table]; ok {
				w.Check = true
				w.Expect = snap.Version
			}
			writes = append(writes, w)
		}

		err := t.commit(ctx, writes, tx.order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return t.writeError(strings.Join(tx.order, ","), err)
		}

		lastErr, lastTables = err, tx.order
		t.log.Debug("version conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Strings("tables", tx.order))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return t.writeError(strings.Join(lastTables, ","), lastErr)
}

// commit applies writes and publishes one notification per table while holding
// commitMu.
func (t *Tables) commit(ctx context.Context, writes []store.Write, order []string) error {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()
	if _, err := t.kv.PutBatch(ctx, writes); err != nil {
		return err
	}
	for _, table := range order {
		t.notify.Publish(ctx, table)
	}
	return nil
}
