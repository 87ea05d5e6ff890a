package tables

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Identified is implemented by pointers to records stored in a Table.
type Identified interface {
	GetID() string
	SetID(id string)
}

// Patch changes fields of a record in place.
type Patch[T any] interface {
	Apply(rec *T)
}

// PatchFunc adapts a function to Patch.
type PatchFunc[T any] func(rec *T)

// Apply calls f(rec).
func (f PatchFunc[T]) Apply(rec *T) {
	f(rec)
}

// Table is a typed view of one table in the Table Store.
type Table[T any, P interface {
	*T
	Identified
}] struct {
	store *Tables
	name  string
}

// NewTable returns the typed table name backed by store.
func NewTable[T any, P interface {
	*T
	Identified
}](store *Tables, name string) *Table[T, P] {
	return &Table[T, P]{store: store, name: name}
}

// Name returns the table name.
func (t *Table[T, P]) Name() string {
	return t.name
}

// Store returns the Table Store the table lives in.
func (t *Table[T, P]) Store() *Tables {
	return t.store
}

// All returns every record, newest first.
func (t *Table[T, P]) All(ctx context.Context) ([]T, error) {
	snap, err := t.store.Read(ctx, t.name)
	if err != nil {
		return nil, err
	}
	return t.decode(snap), nil
}

// Select returns records matching pred in stored order. A nil pred matches all.
func (t *Table[T, P]) Select(ctx context.Context, pred func(*T) bool) ([]T, error) {
	all, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return all, nil
	}
	out := make([]T, 0, len(all))
	for i := range all {
		if pred(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Get returns the first record with id, or nil when there is none.
func (t *Table[T, P]) Get(ctx context.Context, id string) (*T, error) {
	all, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf[T, P](all, id); i >= 0 {
		return &all[i], nil
	}
	return nil, nil
}

// Count returns the number of records.
func (t *Table[T, P]) Count(ctx context.Context) (int, error) {
	all, err := t.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Insert prepends rec and returns it as stored.
// A record without an id gets a generated one. A supplied id that already exists
// fails with ErrDuplicateID. The read and the write commit as one versioned
// transaction, so a concurrent writer's change is never overwritten.
func (t *Table[T, P]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	p := P(&rec)
	if p.GetID() == "" {
		p.SetID(t.store.ids.Generate())
	}

	err := t.store.Atomic(ctx, func(tx *Tx) error {
		all, err := t.Load(tx)
		if err != nil {
			return err
		}
		if indexOf[T, P](all, p.GetID()) >= 0 {
			return fmt.Errorf("insert into %s: id %q: %w", t.name, p.GetID(), ErrDuplicateID)
		}
		next := make([]T, 0, len(all)+1)
		next = append(next, rec)
		next = append(next, all...)
		return t.Stage(tx, next)
	})
	if err != nil {
		return zero, err
	}
	return rec, nil
}

// Update applies patch to the first record with id and writes the table.
// Returns (nil, nil) without writing when no record has id.
//
// When another writer commits the table first, patch is applied again to the
// fresh record, so Apply may run more than once.
func (t *Table[T, P]) Update(ctx context.Context, id string, patch Patch[T]) (*T, error) {
	var updated *T
	err := t.store.Atomic(ctx, func(tx *Tx) error {
		updated = nil
		all, err := t.Load(tx)
		if err != nil {
			return err
		}
		i := indexOf[T, P](all, id)
		if i < 0 {
			return nil
		}

		patch.Apply(&all[i])
		// The id is the record's identity; patches cannot move it.
		P(&all[i]).SetID(id)

		rec := all[i]
		updated = &rec
		return t.Stage(tx, all)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the first record with id and writes the table.
// The table is written even when nothing matched.
func (t *Table[T, P]) Delete(ctx context.Context, id string) error {
	return t.store.Atomic(ctx, func(tx *Tx) error {
		all, err := t.Load(tx)
		if err != nil {
			return err
		}
		if i := indexOf[T, P](all, id); i >= 0 {
			all = append(all[:i], all[i+1:]...)
		}
		return t.Stage(tx, all)
	})
}

// Replace overwrites the whole table with recs.
func (t *Table[T, P]) Replace(ctx context.Context, recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	return t.store.Write(ctx, t.name, recs)
}

// Load reads the table through tx.
func (t *Table[T, P]) Load(tx *Tx) ([]T, error) {
	snap, err := tx.Read(t.name)
	if err != nil {
		return nil, err
	}
	return t.decode(snap), nil
}

// Stage replaces the table with recs when tx commits.
func (t *Table[T, P]) Stage(tx *Tx, recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	return tx.Stage(t.name, recs)
}

// decode parses a snapshot. Records that do not fit T make the table read as empty.
func (t *Table[T, P]) decode(snap Snapshot) []T {
	var out []T
	if err := json.Unmarshal(snap.Data, &out); err != nil {
		t.store.log.Warn("malformed records read as empty",
			zap.String("table", t.name),
			zap.Int64("version", snap.Version),
			zap.Error(err))
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

func indexOf[T any, P interface {
	*T
	Identified
}](recs []T, id string) int {
	for i := range recs {
		if P(&recs[i]).GetID() == id {
			return i
		}
	}
	return -1
}
