package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broadcaster carries events between contexts of the same origin.
//
// Post must not deliver an event back to the context that posted it, though a
// broadcaster that does is tolerated: the bus drops its own origin on receipt.
type Broadcaster interface {
	Post(ctx context.Context, e Event) error
	Attach(deliver func(Event)) error
	Close() error
}

// Bus fans change notifications out to local subscribers and peer contexts.
type Bus struct {
	origin string
	clock  *Clock
	peer   Broadcaster
	log    *zap.Logger
	now    func() time.Time
	queue  *eventQueue
	limit  int

	mu     sync.RWMutex
	subs   []subscription
	nextID int64

	seenMu sync.Mutex
	seen   map[string]int64
}

type subscription struct {
	id int64
	cb Callback
}

// Option configures a Bus.
type Option func(*Bus)

// WithOrigin fixes the origin id instead of generating a random one.
func WithOrigin(origin string) Option {
	return func(b *Bus) {
		b.origin = origin
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// WithNowFunc overrides the wall clock used for event timestamps.
func WithNowFunc(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

// WithClock overrides the sequence clock.
func WithClock(c *Clock) Option {
	return func(b *Bus) {
		b.clock = c
	}
}

// WithQueueLimit bounds the undelivered peer events. Zero means unbounded.
func WithQueueLimit(n int) Option {
	return func(b *Bus) {
		b.limit = n
	}
}

// New creates a bus attached to peer. A nil peer means no other contexts.
func New(peer Broadcaster, opts ...Option) (*Bus, error) {
	if peer == nil {
		peer = Nop{}
	}
	b := &Bus{
		origin: uuid.NewString(),
		clock:  NewClock(),
		peer:   peer,
		log:    zap.NewNop(),
		now:    time.Now,
		limit:  DefaultQueueLimit,
		seen:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.Named("bus").With(zap.String("origin", b.origin))
	b.queue = newEventQueue(b.limit)

	if err := peer.Attach(b.receive); err != nil {
		return nil, fmt.Errorf("attach broadcaster: %w", err)
	}
	return b, nil
}

// Origin returns the id stamped on events published by this bus.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers cb and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(cb Callback) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, cb: cb})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish announces a write to table.
// Local subscribers have all been called when Publish returns. Posting to peers is
// best effort: failures are logged.
func (b *Bus) Publish(ctx context.Context, table string) Event {
	return b.publish(ctx, KindWrite, table)
}

// PublishReset announces that every table was removed.
func (b *Bus) PublishReset(ctx context.Context) Event {
	return b.publish(ctx, KindReset, "")
}

func (b *Bus) publish(ctx context.Context, kind Kind, table string) Event {
	e := Event{
		Kind:      kind,
		Table:     table,
		Origin:    b.origin,
		Seq:       b.clock.Next(),
		Timestamp: b.now().UnixMilli(),
	}

	b.dispatch(e)

	if err := b.peer.Post(ctx, e); err != nil {
		b.log.Warn("post to peers failed",
			zap.String("kind", string(kind)),
			zap.String("table", table),
			zap.Int64("seq", e.Seq),
			zap.Error(err))
	}
	return e
}

// receive is handed to the broadcaster. It only queues.
func (b *Bus) receive(e Event) {
	if e.Origin == b.origin {
		return
	}
	e.Remote = true
	if !b.queue.Enqueue(e) {
		b.log.Debug("dropped peer event after close", zap.String("peer", e.Origin))
	}
}

// Drain delivers every queued peer event and returns how many were delivered.
func (b *Bus) Drain() int {
	n := 0
	for {
		e, ok := b.queue.TryDequeue()
		if !ok {
			return n
		}
		b.deliver(e)
		n++
	}
}

// Run delivers peer events until ctx is done or the bus is closed.
func (b *Bus) Run(ctx context.Context) error {
	for {
		b.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-b.queue.Wait():
			if !ok {
				b.Drain()
				return nil
			}
		}
	}
}

// Pending returns the number of peer events waiting for delivery.
func (b *Bus) Pending() int {
	return b.queue.Len()
}

// Close detaches from peers. Queued events can still be drained.
func (b *Bus) Close() error {
	b.queue.Close()
	return b.peer.Close()
}

func (b *Bus) deliver(e Event) {
	b.seenMu.Lock()
	last, known := b.seen[e.Origin]
	switch {
	case known && e.Seq <= last:
		e.Stale = true
	default:
		if known {
			e.Missed = e.Seq - last - 1
		}
		b.seen[e.Origin] = e.Seq
	}
	b.seenMu.Unlock()

	if e.Missed > 0 {
		b.log.Info("peer notifications missed",
			zap.String("peer", e.Origin),
			zap.Int64("missed", e.Missed))
	}

	b.dispatch(e)
}

// dispatch calls subscribers in registration order, outside the lock so a
// callback may subscribe or unsubscribe.
func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.cb(e)
	}
}
