package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPeer struct {
	Nop
	posts int
}

func (f *failingPeer) Post(context.Context, Event) error {
	f.posts++
	return errors.New("channel gone")
}

func newTestBus(t *testing.T, peer Broadcaster, origin string) *Bus {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b, err := New(peer, WithOrigin(origin), WithNowFunc(func() time.Time { return fixed }))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPublish_CallsLocalSubscribersInOrder(t *testing.T) {
	b := newTestBus(t, nil, "local")
	ctx := context.Background()

	var calls []string
	b.Subscribe(func(e Event) { calls = append(calls, "first:"+e.Table) })
	b.Subscribe(func(e Event) { calls = append(calls, "second:"+e.Table) })

	b.Publish(ctx, "orders")
	b.Publish(ctx, "products")

	assert.Equal(t, []string{
		"first:orders", "second:orders",
		"first:products", "second:products",
	}, calls)
}

func TestPublish_StampsEvent(t *testing.T) {
	b := newTestBus(t, nil, "local")

	e1 := b.Publish(context.Background(), "orders")
	e2 := b.PublishReset(context.Background())

	assert.Equal(t, KindWrite, e1.Kind)
	assert.Equal(t, "local", e1.Origin)
	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, int64(2), e2.Seq)
	assert.Equal(t, KindReset, e2.Kind)
	assert.Empty(t, e2.Table)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), e1.Time())
	assert.False(t, e1.Remote)
}

func TestPublish_PeerFailureIsNotFatal(t *testing.T) {
	peer := &failingPeer{}
	b := newTestBus(t, peer, "local")

	var got int
	b.Subscribe(func(Event) { got++ })

	b.Publish(context.Background(), "orders")
	assert.Equal(t, 1, got, "local subscribers still run")
	assert.Equal(t, 1, peer.posts)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	b := newTestBus(t, nil, "local")

	var got int
	unsubscribe := b.Subscribe(func(Event) { got++ })

	b.Publish(context.Background(), "orders")
	unsubscribe()
	unsubscribe()
	b.Publish(context.Background(), "orders")

	assert.Equal(t, 1, got)
}

func TestSubscribe_UnsubscribeFromCallback(t *testing.T) {
	b := newTestBus(t, nil, "local")

	var got int
	var unsubscribe func()
	unsubscribe = b.Subscribe(func(Event) {
		got++
		unsubscribe()
	})

	b.Publish(context.Background(), "orders")
	b.Publish(context.Background(), "orders")
	assert.Equal(t, 1, got)
}

func TestPeers_DeliveredWithoutRebroadcast(t *testing.T) {
	hub := NewMemoryHub()
	a := newTestBus(t, hub.Join("sync"), "a")
	b := newTestBus(t, hub.Join("sync"), "b")
	c := newTestBus(t, hub.Join("sync"), "c")

	var atB, atA []Event
	b.Subscribe(func(e Event) { atB = append(atB, e) })
	a.Subscribe(func(e Event) { atA = append(atA, e) })

	a.Publish(context.Background(), "orders")

	assert.Empty(t, atB, "peer events wait for delivery")
	assert.Equal(t, 1, b.Drain())
	require.Len(t, atB, 1)
	assert.True(t, atB[0].Remote)
	assert.Equal(t, "a", atB[0].Origin)
	assert.Equal(t, "orders", atB[0].Table)

	// Delivering at b and c posts nothing back to a.
	c.Drain()
	assert.Equal(t, 0, a.Pending())
	require.Len(t, atA, 1, "a saw only its own local write")
	assert.False(t, atA[0].Remote)
}

func TestPeers_OwnOriginDropped(t *testing.T) {
	b := newTestBus(t, nil, "self")
	b.receive(Event{Kind: KindWrite, Table: "orders", Origin: "self", Seq: 1})
	assert.Equal(t, 0, b.Pending())
}

func TestPeers_MissedAndStale(t *testing.T) {
	b := newTestBus(t, nil, "local")

	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })

	for _, seq := range []int64{3, 4, 7, 7, 5} {
		b.receive(Event{Kind: KindWrite, Table: "orders", Origin: "peer", Seq: seq})
	}
	b.Drain()

	require.Len(t, got, 5)
	assert.Zero(t, got[0].Missed, "first sighting of a peer reports no gap")
	assert.Zero(t, got[1].Missed)
	assert.Equal(t, int64(2), got[2].Missed)
	assert.True(t, got[3].Stale, "duplicate")
	assert.True(t, got[4].Stale, "out of order")
}

func TestPeers_QueueOverflowSurfacesAsMissed(t *testing.T) {
	b, err := New(nil, WithOrigin("local"), WithQueueLimit(2))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })

	b.receive(Event{Kind: KindWrite, Table: "orders", Origin: "peer", Seq: 1})
	b.Drain()
	for seq := int64(2); seq <= 5; seq++ {
		b.receive(Event{Kind: KindWrite, Table: "products", Origin: "peer", Seq: seq})
	}
	assert.Equal(t, 2, b.Pending())
	assert.Equal(t, int64(2), b.queue.Dropped())

	b.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, int64(4), got[1].Seq)
	assert.Equal(t, int64(2), got[1].Missed, "events 2 and 3 were discarded")
	assert.Zero(t, got[2].Missed)
}

func TestRun_DeliversUntilCancelled(t *testing.T) {
	hub := NewMemoryHub()
	a := newTestBus(t, hub.Join("sync"), "a")
	b := newTestBus(t, hub.Join("sync"), "b")

	var (
		mu  sync.Mutex
		got []string
	)
	delivered := make(chan struct{}, 4)
	b.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Table)
		mu.Unlock()
		delivered <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	a.Publish(context.Background(), "orders")
	a.Publish(context.Background(), "products")

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("peer event not delivered")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"orders", "products"}, got)
}

func TestRun_ReturnsOnClose(t *testing.T) {
	b, err := New(nil, WithOrigin("x"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	require.NoError(t, b.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNew_RandomOrigins(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	b, err := New(nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Origin(), b.Origin())
}
