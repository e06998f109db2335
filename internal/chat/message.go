package chat

import "time"

// Message is a chat line accepted by the hub. Values are never mutated once
// created.
type Message struct {
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
}

// SameAs reports whether two messages share the same identity, which is the
// exact (sender, body, sentAt) triple.
func (m Message) SameAs(other Message) bool {
	return m.Sender == other.Sender &&
		m.Body == other.Body &&
		m.SentAt.Equal(other.SentAt)
}

// FormatClock renders the local wall clock time of t as HH:MM.
func FormatClock(t time.Time) string {
	return t.Local().Format("15:04")
}
