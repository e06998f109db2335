package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatroom/internal/chat"
)

const (
	eventually = 2 * time.Second
	tick       = 5 * time.Millisecond
)

type sentAction struct {
	action string
	data   any
}

// fakeConn is a scripted Conn. Tests push signals in and read what the
// session sent.
type fakeConn struct {
	signals  chan Signal
	mu       sync.Mutex
	sent     []sentAction
	closed   bool
	sendErr  error
	stopOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{signals: make(chan Signal, 128)}
}

func (c *fakeConn) Signals() <-chan Signal { return c.signals }

func (c *fakeConn) Send(action string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentAction{action: action, data: data})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.finish()
	return nil
}

// finish ends the connection from the transport side.
func (c *fakeConn) finish() {
	c.stopOnce.Do(func() { close(c.signals) })
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, s := range c.sent {
		out = append(out, s.action)
	}
	return out
}

func (c *fakeConn) last() sentAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

func (c *fakeConn) event(t *testing.T, kind string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	c.signals <- Signal{Kind: SignalEvent, Envelope: chat.Envelope{Type: kind, Data: raw}}
}

func (c *fakeConn) rawEvent(kind, raw string) {
	c.signals <- Signal{Kind: SignalEvent, Envelope: chat.Envelope{Type: kind, Data: json.RawMessage(raw)}}
}

// fakeDialer fails with queued errors first, then hands out fresh fakeConns.
type fakeDialer struct {
	mu    sync.Mutex
	errs  []error
	names []string
	conns chan *fakeConn
}

func newFakeDialer(errs ...error) *fakeDialer {
	return &fakeDialer{errs: errs, conns: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, name string) (Conn, error) {
	d.mu.Lock()
	d.names = append(d.names, name)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}

func (d *fakeDialer) nextConn(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(eventually):
		t.Fatal("Timed out waiting for a dial")
		return nil
	}
}

// fakeHistory serves a fixed message list.
type fakeHistory struct {
	mu       sync.Mutex
	messages []chat.Message
	err      error
	calls    int
}

func (h *fakeHistory) Fetch(context.Context) ([]chat.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return append([]chat.Message(nil), h.messages...), h.err
}

func (h *fakeHistory) set(messages ...chat.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = messages
}

func (h *fakeHistory) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.View().State == want
	}, eventually, tick, "session never reached %s", want)
}

func at(minute int) time.Time {
	return time.Date(2024, 6, 1, 10, minute, 0, 0, time.UTC)
}
