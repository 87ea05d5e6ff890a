package bus

import "sync"

// DefaultQueueLimit bounds the peer events held for a context that is not
// draining. Past it the oldest events are discarded, which subscribers see as
// Missed on the next delivery from that peer.
const DefaultQueueLimit = 1024

// eventQueue holds peer events between a broadcaster's goroutine and Drain/Run.
type eventQueue struct {
	mu      sync.Mutex
	pending []Event
	limit   int
	dropped int64
	closed  bool
	wake    chan struct{} // cap 1; closed on Close
}

func newEventQueue(limit int) *eventQueue {
	return &eventQueue{
		limit: limit,
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue appends e, discarding the oldest event when the queue is full.
// Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.limit > 0 && len(q.pending) >= q.limit {
		q.pending[0] = Event{}
		q.pending = q.pending[1:]
		q.dropped++
	}
	q.pending = append(q.pending, e)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Event{}, false
	}
	e := q.pending[0]
	q.pending[0] = Event{}
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		q.pending = nil
	}
	return e, true
}

// Wait returns a channel that receives after an Enqueue and is closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.wake
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns how many events were discarded for lack of room.
func (q *eventQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close rejects further events. Events already queued can still be dequeued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.wake)
	}
}

func (q *eventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
