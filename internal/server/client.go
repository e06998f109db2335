// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/config"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	writeWait    = 10 * time.Second
	sendBufferSz = 256
)

// Client represents a WebSocket connection in the chat room. It is the hub's
// Sink for that connection.
type Client struct {
	id             string
	name           string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      config.RateLimitConfig
	logger         zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client for conn with a fresh connection id. The
// requested name is resolved when the hub registers the client.
func NewClient(conn *websocket.Conn, hub *Hub, addr, name string, cfg config.Config) *Client {
	cfg = config.Sanitize(cfg)
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	var logger zerolog.Logger
	if hub != nil {
		logger = hub.logger
	} else {
		logger = zerolog.Nop()
	}

	return &Client{
		id:             id,
		name:           name,
		conn:           conn,
		send:           make(chan []byte, sendBufferSz),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		logger:         logger.With().Str("conn_id", id).Str("addr", addr).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Deliver queues payload for the write pump. A client whose buffer is full is
// considered stalled: its channel is closed so the write pump hangs up, and
// the read pump then unregisters it.
func (c *Client) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.closed = true
		close(c.send)
		c.logger.Warn().Msg("Client removed due to full send buffer")
		return false
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn().Err(err).Msg("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn().Err(err).Msg("Error setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.Warn().Int64("limit", c.maxMessageSize).Msg("Message exceeded maximum size")
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.logger.Info().Err(err).Msg("Client disconnected")
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.Info().Err(err).Msg("Client connection closed")
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.logger.Warn().Err(err).Msg("Unexpected WebSocket error")
		return true
	}

	c.logger.Warn().Err(err).Msg("WebSocket read error")
	return true
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.logger.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("interval", c.rateLimit.RefillInterval).
			Msg("Rate limit exceeded; discarding message")
		return false
	}
	return true
}

// processMessage decodes one action frame and hands it to the hub. Frames
// that cannot be decoded are dropped.
func (c *Client) processMessage(rawMessage []byte) bool {
	var env chat.Envelope
	if err := json.Unmarshal(rawMessage, &env); err != nil {
		c.logger.Debug().Err(err).Msg("Invalid frame")
		return false
	}

	switch env.Type {
	case chat.ActionSendMessage:
		var action chat.SendMessageAction
		if err := env.Decode(&action); err != nil {
			c.logger.Debug().Err(err).Msg("Invalid sendMessage payload")
			return false
		}
		c.hub.OnSendMessage(c.id, action.Sender, action.Body)

	case chat.ActionStartTyping, chat.ActionStopTyping:
		var action chat.TypingAction
		if err := env.Decode(&action); err != nil {
			c.logger.Debug().Err(err).Str("action", env.Type).Msg("Invalid typing payload")
			return false
		}
		if env.Type == chat.ActionStartTyping {
			c.hub.OnStartTyping(c.id, action.Sender)
		} else {
			c.hub.OnStopTyping(c.id, action.Sender)
		}

	default:
		c.logger.Debug().Str("action", env.Type).Msg("Unknown action")
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.release(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			break
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn().Err(err).Msg("Error closing connection")
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn().Err(err).Msg("Error setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn().Err(err).Msg("Error writing close message")
	}
	return false
}

// writeTextMessage writes a text frame holding message and any queued
// messages, one envelope per line.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Error creating writer")
		return false
	}

	if _, err := w.Write(message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	if err := w.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Error closing writer")
		return false
	}
	return true
}

// writeQueuedMessages drains what is already buffered into the same frame.
func (c *Client) writeQueuedMessages(w io.Writer) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		queued, ok := <-c.send
		if !ok {
			return true
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.logger.Warn().Err(err).Msg("Error writing newline")
			return false
		}
		if _, err := w.Write(queued); err != nil {
			c.logger.Warn().Err(err).Msg("Error writing queued message")
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn().Err(err).Msg("Error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping message")
		return false
	}
	return true
}
