package chat

import (
	"encoding/json"
	"fmt"
)

// Event names pushed from the hub to clients.
const (
	EventMessage         = "message"
	EventTypingStarted   = "typingStarted"
	EventTypingStopped   = "typingStopped"
	EventPresenceChanged = "presenceChanged"
)

// Action names sent from clients to the hub. Connect and disconnect are
// implied by the socket lifecycle.
const (
	ActionSendMessage = "sendMessage"
	ActionStartTyping = "startTyping"
	ActionStopTyping  = "stopTyping"
)

// Envelope is the JSON frame exchanged over the WebSocket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TypingEvent is the payload of typingStarted and typingStopped.
type TypingEvent struct {
	User string `json:"user"`
}

// SendMessageAction is the payload of sendMessage.
type SendMessageAction struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// TypingAction is the payload of startTyping and stopTyping.
type TypingAction struct {
	Sender string `json:"sender"`
}

// Encode wraps data in an Envelope of the given type and marshals it.
func Encode(kind string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: raw})
}

// Decode unmarshals the envelope payload into v. An empty payload leaves v
// untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
