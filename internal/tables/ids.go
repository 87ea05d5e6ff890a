package tables

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces ids for inserted records that arrive without one.
type IDGenerator interface {
	Generate() string
}

// RandomIDs generates random (version 4) UUIDs.
//
// 122 random bits make collisions practically impossible at storefront scale.
type RandomIDs struct{}

// Generate returns a new random UUID string.
func (RandomIDs) Generate() string {
	return uuid.NewString()
}

// FixedIDs returns predetermined ids for testing.
//
// Safe for concurrent use.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch a test inserting more records
// than it planned.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
