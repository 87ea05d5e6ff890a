package tables

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/store"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func (i *item) GetID() string   { return i.ID }
func (i *item) SetID(id string) { i.ID = id }

// harness is one context on an origin: its own bus over a shared store file.
type harness struct {
	kv     *store.Store
	bus    *bus.Bus
	tables *Tables
	items  *Table[item, *item]
	events []bus.Event
}

func newHarness(t *testing.T, path string, peer bus.Broadcaster, opts ...Option) *harness {
	t.Helper()
	kv, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	b, err := bus.New(peer)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	h := &harness{kv: kv, bus: b}
	h.tables = New(kv, b, opts...)
	h.items = NewTable[item, *item](h.tables, "items")
	b.Subscribe(func(e bus.Event) { h.events = append(h.events, e) })
	return h
}

func newTestHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarness(t, filepath.Join(t.TempDir(), "test.db"), nil, opts...)
}

func (h *harness) tablesNotified() []string {
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Table)
	}
	return out
}

func mustInsert(t *testing.T, h *harness, rec item) item {
	t.Helper()
	got, err := h.items.Insert(context.Background(), rec)
	require.NoError(t, err)
	return got
}
