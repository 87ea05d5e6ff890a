package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEncoding_WireShape(t *testing.T) {
	e := Event{
		Kind:      KindWrite,
		Table:     "products",
		Origin:    "o-1",
		Seq:       7,
		Timestamp: 1700000000000,
		Remote:    true,
		Missed:    2,
	}

	data, err := encodeEvent(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"write","table":"products","origin":"o-1","seq":7,"timestamp":1700000000000}`, string(data))

	got, err := decodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "products", got.Table)
	assert.False(t, got.Remote, "delivery fields are not on the wire")
	assert.Zero(t, got.Missed)
}

func TestDecodeEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"unknown kind", `{"type":"DB_UPDATE","table":"x","origin":"o"}`},
		{"write without table", `{"type":"write","origin":"o"}`},
		{"missing origin", `{"type":"reset"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEvent([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodeEvent_Reset(t *testing.T) {
	e, err := decodeEvent([]byte(`{"type":"reset","origin":"o","seq":1,"timestamp":5}`))
	require.NoError(t, err)
	assert.Equal(t, KindReset, e.Kind)
	assert.Equal(t, int64(5), e.Time().UnixMilli())
}
