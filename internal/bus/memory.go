package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when posting on a closed endpoint.
var ErrClosed = errors.New("broadcaster closed")

// MemoryHub connects contexts living in one process, the way a browser connects
// tabs sharing a BroadcastChannel name.
type MemoryHub struct {
	mu       sync.Mutex
	channels map[string][]*MemoryEndpoint
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{channels: make(map[string][]*MemoryEndpoint)}
}

// Join returns a new endpoint on channel.
func (h *MemoryHub) Join(channel string) *MemoryEndpoint {
	ep := &MemoryEndpoint{hub: h, channel: channel}
	h.mu.Lock()
	h.channels[channel] = append(h.channels[channel], ep)
	h.mu.Unlock()
	return ep
}

func (h *MemoryHub) peers(ep *MemoryEndpoint) []*MemoryEndpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*MemoryEndpoint
	for _, other := range h.channels[ep.channel] {
		if other != ep {
			out = append(out, other)
		}
	}
	return out
}

func (h *MemoryHub) leave(ep *MemoryEndpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	eps := h.channels[ep.channel]
	for i, other := range eps {
		if other == ep {
			h.channels[ep.channel] = append(eps[:i:i], eps[i+1:]...)
			break
		}
	}
	if len(h.channels[ep.channel]) == 0 {
		delete(h.channels, ep.channel)
	}
}

// MemoryEndpoint is one context's handle on a MemoryHub channel.
type MemoryEndpoint struct {
	hub     *MemoryHub
	channel string

	mu      sync.Mutex
	deliver func(Event)
	closed  bool
}

// Post delivers e to every other endpoint on the channel.
func (ep *MemoryEndpoint) Post(_ context.Context, e Event) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()
	if closed {
		return ErrClosed
	}

	for _, peer := range ep.hub.peers(ep) {
		peer.receive(e)
	}
	return nil
}

// Attach sets the function receiving events from other endpoints.
func (ep *MemoryEndpoint) Attach(deliver func(Event)) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.deliver = deliver
	return nil
}

// Close leaves the channel.
func (ep *MemoryEndpoint) Close() error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	ep.mu.Unlock()

	ep.hub.leave(ep)
	return nil
}

func (ep *MemoryEndpoint) receive(e Event) {
	ep.mu.Lock()
	deliver := ep.deliver
	closed := ep.closed
	ep.mu.Unlock()
	if closed || deliver == nil {
		return
	}
	deliver(e)
}

// Nop is a Broadcaster with no peers.
type Nop struct{}

// Post does nothing.
func (Nop) Post(context.Context, Event) error { return nil }

// Attach does nothing.
func (Nop) Attach(func(Event)) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
