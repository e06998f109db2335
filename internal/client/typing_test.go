package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypingLabel(t *testing.T) {
	tests := []struct {
		name  string
		users []string
		self  string
		want  string
	}{
		{name: "nobody", users: nil, self: "Ana", want: ""},
		{name: "only self", users: []string{"Ana"}, self: "Ana", want: ""},
		{name: "one other", users: []string{"Bob"}, self: "Ana", want: "Bob is typing..."},
		{name: "self filtered", users: []string{"Ana", "Bob"}, self: "Ana", want: "Bob is typing..."},
		{name: "several", users: []string{"Bob", "Cid", "Dan"}, self: "Ana", want: "Bob and 2 more are typing..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypingLabel(tt.users, tt.self))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(42).String())
}
