package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveName covers blank, padded, and already clean names.
func TestResolveName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", DefaultName},
		{"   ", DefaultName},
		{"\t\n", DefaultName},
		{" Bob ", "Bob"},
		{"Bob", "Bob"},
		{"Ana Maria", "Ana Maria"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ResolveName(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ResolveName(got), "resolution must be idempotent")
		})
	}
}

// TestMessageSameAs checks that identity needs all three fields to match.
func TestMessageSameAs(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	base := Message{Sender: "Ana", Body: "oi", SentAt: at}

	assert.True(t, base.SameAs(Message{Sender: "Ana", Body: "oi", SentAt: at.In(time.FixedZone("BRT", -3*3600))}))
	assert.False(t, base.SameAs(Message{Sender: "ana", Body: "oi", SentAt: at}))
	assert.False(t, base.SameAs(Message{Sender: "Ana", Body: "oi!", SentAt: at}))
	assert.False(t, base.SameAs(Message{Sender: "Ana", Body: "oi", SentAt: at.Add(time.Millisecond)}))
}

// TestEncodeEnvelope checks the frame layout shared with the clients.
func TestEncodeEnvelope(t *testing.T) {
	frame, err := Encode(EventPresenceChanged, OnlineView{Count: 1, Users: []string{"bob"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"presenceChanged","data":{"count":1,"users":["bob"]}}`, string(frame))

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))

	var view OnlineView
	require.NoError(t, env.Decode(&view))
	assert.Equal(t, []string{"bob"}, view.Users)
}

// TestEnvelopeDecodeEmpty leaves the target untouched for missing payloads.
func TestEnvelopeDecodeEmpty(t *testing.T) {
	view := OnlineView{Count: 3}
	require.NoError(t, Envelope{Type: EventPresenceChanged}.Decode(&view))
	require.NoError(t, Envelope{Type: EventPresenceChanged, Data: json.RawMessage("null")}.Decode(&view))
	assert.Equal(t, 3, view.Count)

	assert.Error(t, Envelope{Type: EventMessage, Data: json.RawMessage(`"nope"`)}.Decode(&view))
}

// TestFormatClock renders hours and minutes with zero padding.
func TestFormatClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 7, 5, 59, 0, time.Local)
	assert.Equal(t, "07:05", FormatClock(at))
}
