package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/chat"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	signalBuffer     = 64
)

// DefaultReconnectDelays are the pauses before each automatic reconnect
// attempt after a connection drops.
var DefaultReconnectDelays = []time.Duration{0, 2 * time.Second, 5 * time.Second, 10 * time.Second}

// WebSocketDialer connects to the server's /ws endpoint.
type WebSocketDialer struct {
	base             *url.URL
	HandshakeTimeout time.Duration
	ReconnectDelays  []time.Duration
	logger           zerolog.Logger
}

// NewWebSocketDialer returns a dialer for the server at baseURL
// (http or https).
func NewWebSocketDialer(baseURL string, logger zerolog.Logger) (*WebSocketDialer, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	return &WebSocketDialer{
		base:             base,
		HandshakeTimeout: handshakeTimeout,
		ReconnectDelays:  DefaultReconnectDelays,
		logger:           logger.With().Str("component", "transport").Logger(),
	}, nil
}

// Dial opens a connection for name. The returned Conn reconnects on its own
// after unexpected drops and closes its Signals channel once it gives up.
func (d *WebSocketDialer) Dial(ctx context.Context, name string) (Conn, error) {
	endpoint, origin := socketURL(d.base, name)

	ws, err := d.open(ctx, endpoint, origin)
	if err != nil {
		return nil, err
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		dialer:   d,
		endpoint: endpoint,
		origin:   origin,
		signals:  make(chan Signal, signalBuffer),
		ctx:      connCtx,
		cancel:   cancel,
		ws:       ws,
		logger:   d.logger,
	}
	go c.run(ws)
	return c, nil
}

func (d *WebSocketDialer) open(ctx context.Context, endpoint, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	header := http.Header{}
	header.Set("Origin", origin)

	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return ws, nil
}

// wsConn is a Conn over gorilla/websocket.
type wsConn struct {
	dialer   *WebSocketDialer
	endpoint string
	origin   string
	signals  chan Signal
	ctx      context.Context
	cancel   context.CancelFunc
	logger   zerolog.Logger

	mu        sync.Mutex
	ws        *websocket.Conn
	closeOnce sync.Once
}

func (c *wsConn) Signals() <-chan Signal {
	return c.signals
}

// Send writes one action envelope. It returns ErrNotConnected while the
// socket is being re-established.
func (c *wsConn) Send(action string, data any) error {
	frame, err := chat.Encode(action, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return ErrNotConnected
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.ws == nil {
			return
		}
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
		c.ws = nil
	})
	return err
}

// run reads until the socket drops, then walks the reconnect delays. The
// signals channel is closed when the connection is closed or every attempt
// failed.
func (c *wsConn) run(ws *websocket.Conn) {
	defer close(c.signals)

	for {
		err := c.readLoop(ws)
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Msg("Connection dropped")

		c.swap(ws, nil)
		if !c.emit(Signal{Kind: SignalReconnecting}) {
			return
		}

		next, ok := c.reconnect()
		if !ok {
			return
		}
		if !c.swap(nil, next) {
			_ = next.Close()
			return
		}
		ws = next
		if !c.emit(Signal{Kind: SignalReconnected}) {
			return
		}
	}
}

// swap replaces the current socket when it is still old. It refuses new
// sockets after Close.
func (c *wsConn) swap(old, next *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return false
	}
	if c.ws == old {
		if old != nil {
			_ = old.Close()
		}
		c.ws = next
	}
	return true
}

func (c *wsConn) readLoop(ws *websocket.Conn) error {
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var env chat.Envelope
			if err := json.Unmarshal(line, &env); err != nil {
				c.logger.Debug().Err(err).Msg("Skipping malformed frame")
				continue
			}
			if !c.emit(Signal{Kind: SignalEvent, Envelope: env}) {
				return c.ctx.Err()
			}
		}
	}
}

func (c *wsConn) emit(sig Signal) bool {
	select {
	case c.signals <- sig:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *wsConn) reconnect() (*websocket.Conn, bool) {
	for attempt, delay := range c.dialer.ReconnectDelays {
		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return nil, false
		}

		ws, err := c.dialer.open(c.ctx, c.endpoint, c.origin)
		if err == nil {
			c.logger.Info().Int("attempt", attempt+1).Msg("Reconnected")
			return ws, true
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Reconnect attempt failed")
	}
	return nil, false
}
