package httpapi

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/bus"
)

// eventBuffer is how many notifications a slow stream client may fall behind
// before events are dropped for it.
const eventBuffer = 64

// eventView is an event as sent to stream clients, delivery fields included.
type eventView struct {
	Type      bus.Kind `json:"type"`
	Table     string   `json:"table,omitempty"`
	Origin    string   `json:"origin"`
	Seq       int64    `json:"seq"`
	Timestamp int64    `json:"timestamp"`
	Remote    bool     `json:"remote"`
	Missed    int64    `json:"missed,omitempty"`
	Stale     bool     `json:"stale,omitempty"`
}

func viewOf(e bus.Event) eventView {
	return eventView{
		Type:      e.Kind,
		Table:     e.Table,
		Origin:    e.Origin,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		Remote:    e.Remote,
		Missed:    e.Missed,
		Stale:     e.Stale,
	}
}

// Events streams change notifications as server-sent events. The stream opens with
// a "ready" event; each notification is a "change" event.
func (h *Handler) Events(c *gin.Context) {
	events := make(chan bus.Event, eventBuffer)
	unsubscribe := h.shop.Subscribe(func(e bus.Event) {
		select {
		case events <- e:
		default:
			h.log.Warn("event stream client too slow, dropping event",
				zap.String("table", e.Table),
				zap.Int64("seq", e.Seq))
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("ready", gin.H{"origin": h.shop.Origin()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			c.SSEvent("change", viewOf(e))
			return true
		}
	})
}
