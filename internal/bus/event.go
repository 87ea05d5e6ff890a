package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind distinguishes table writes from a full reset.
type Kind string

const (
	// KindWrite reports that one table was replaced.
	KindWrite Kind = "write"
	// KindReset reports that every table was removed.
	KindReset Kind = "reset"
)

// Event is the change notification message.
//
// Kind, Table, Origin, Seq and Timestamp travel between contexts. Remote, Missed
// and Stale are filled in on delivery.
type Event struct {
	Kind      Kind   `json:"type"`
	Table     string `json:"table,omitempty"`
	Origin    string `json:"origin"`
	Seq       int64  `json:"seq"`
	Timestamp int64  `json:"timestamp"`

	// Remote is true when the event was published by another context.
	Remote bool `json:"-"`
	// Missed counts notifications from the same origin that never arrived before this one.
	Missed int64 `json:"-"`
	// Stale marks a duplicate or out-of-order delivery.
	Stale bool `json:"-"`
}

// Time returns Timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// Callback receives change notifications.
type Callback func(Event)

func encodeEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch e.Kind {
	case KindWrite:
		if e.Table == "" {
			return Event{}, fmt.Errorf("decode event: write without table")
		}
	case KindReset:
	default:
		return Event{}, fmt.Errorf("decode event: unknown type %q", e.Kind)
	}
	if e.Origin == "" {
		return Event{}, fmt.Errorf("decode event: missing origin")
	}
	return e, nil
}
