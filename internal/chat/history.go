package chat

import "sync"

// DefaultHistorySize is the number of recent messages kept by the hub and by
// every client.
const DefaultHistorySize = 50

// History is a bounded append-only log of recent messages. When full, the
// oldest message is evicted.
type History struct {
	mu    sync.RWMutex
	items []Message
	limit int
}

// NewHistory creates a History holding at most limit messages. A non-positive
// limit falls back to DefaultHistorySize.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{
		items: make([]Message, 0, limit),
		limit: limit,
	}
}

// Append adds msg at the tail, evicting the head on overflow.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == h.limit {
		copy(h.items, h.items[1:])
		h.items[len(h.items)-1] = msg
		return
	}
	h.items = append(h.items, msg)
}

// Snapshot returns a copy of the retained messages, oldest first.
func (h *History) Snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Limit returns the capacity of the history.
func (h *History) Limit() int {
	return h.limit
}
