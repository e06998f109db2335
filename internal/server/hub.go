// Package server coordinates client registration, room state, and event
// fan-out for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// Sink is a connected recipient of hub events, keyed by its connection id.
type Sink interface {
	ID() string
	// Deliver queues payload without blocking and reports whether it was
	// accepted.
	Deliver(payload []byte) bool
	// Close releases the sink. It must be safe to call more than once.
	Close()
}

// Mirror receives every accepted chat message after it has been broadcast.
type Mirror interface {
	Publish(ctx context.Context, msg chat.Message) error
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMirror forwards accepted messages to m.
func WithMirror(m Mirror) Option {
	return func(h *Hub) {
		h.mirror = m
	}
}

// WithClock replaces the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// Hub owns the room state and fans events out to every registered sink.
// Store mutations and the broadcast they cause are serialized so every
// recipient observes them in the same order the stores applied them.
type Hub struct {
	history  *chat.History
	presence *chat.Presence
	mirror   Mirror
	logger   zerolog.Logger
	now      func() time.Time

	sinks map[string]Sink
	mutex sync.RWMutex
	order sync.Mutex

	register   chan *Client
	unregister chan *Client
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub over the given stores. The returned Hub is ready to
// manage WebSocket connections once Run is started.
func NewHub(history *chat.History, presence *chat.Presence, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		history:    history,
		presence:   presence,
		logger:     zerolog.Nop(),
		now:        time.Now,
		sinks:      make(map[string]Sink),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register hands a freshly upgraded client to the Run loop. It returns false
// once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) release(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.OnDisconnect(client.ID())
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It should be called in a separate goroutine and returns
// after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn().Msg("Received nil client registration; skipping")
				continue
			}

			h.OnConnect(client, client.name)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.OnDisconnect(client.ID())
		}
	}
}

// OnConnect registers sink under the resolved name and broadcasts the new
// presence view to every sink, the new one included.
func (h *Hub) OnConnect(sink Sink, requestedName string) {
	name := chat.ResolveName(requestedName)

	h.order.Lock()
	defer h.order.Unlock()

	h.mutex.Lock()
	h.sinks[sink.ID()] = sink
	clientCount := len(h.sinks)
	h.mutex.Unlock()

	view := h.presence.Register(sink.ID(), name)
	h.logger.Info().
		Str("conn_id", sink.ID()).
		Str("user", name).
		Int("clients", clientCount).
		Msg("Client registered")

	h.broadcast(chat.EventPresenceChanged, view, "")
}

// OnDisconnect drops the sink and its presence entry and broadcasts the new
// view to the remaining sinks. Unknown ids are ignored.
func (h *Hub) OnDisconnect(connectionID string) {
	h.order.Lock()
	defer h.order.Unlock()

	h.mutex.Lock()
	sink, ok := h.sinks[connectionID]
	if ok {
		delete(h.sinks, connectionID)
	}
	clientCount := len(h.sinks)
	h.mutex.Unlock()

	if !ok {
		return
	}
	sink.Close()

	view := h.presence.Remove(connectionID)
	h.logger.Info().
		Str("conn_id", connectionID).
		Int("clients", clientCount).
		Msg("Client unregistered")

	h.broadcast(chat.EventPresenceChanged, view, "")
}

// OnSendMessage stores a message and broadcasts it to every sink, the sender
// included. Blank bodies are dropped silently.
func (h *Hub) OnSendMessage(connectionID, rawSender, rawBody string) {
	body := strings.TrimSpace(rawBody)
	if body == "" {
		h.logger.Debug().Str("conn_id", connectionID).Msg("Dropping empty message")
		return
	}

	msg := chat.Message{
		Sender: chat.ResolveName(rawSender),
		Body:   body,
		SentAt: h.now().UTC(),
	}

	h.order.Lock()
	h.history.Append(msg)
	h.broadcast(chat.EventMessage, msg, "")
	h.order.Unlock()

	if h.mirror != nil {
		if err := h.mirror.Publish(h.ctx, msg); err != nil {
			h.logger.Warn().Err(err).Str("conn_id", connectionID).Msg("Failed to mirror message")
		}
	}
}

// OnStartTyping tells every other sink that the sender started typing.
func (h *Hub) OnStartTyping(connectionID, rawSender string) {
	h.broadcast(chat.EventTypingStarted, chat.TypingEvent{User: chat.ResolveName(rawSender)}, connectionID)
}

// OnStopTyping tells every other sink that the sender stopped typing.
func (h *Hub) OnStopTyping(connectionID, rawSender string) {
	h.broadcast(chat.EventTypingStopped, chat.TypingEvent{User: chat.ResolveName(rawSender)}, connectionID)
}

// History returns the retained messages, oldest first.
func (h *Hub) History() []chat.Message {
	return h.history.Snapshot()
}

// Online returns the current presence view.
func (h *Hub) Online() chat.OnlineView {
	return h.presence.CurrentView()
}

// ClientCount returns the number of registered sinks.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sinks)
}

// broadcast encodes one event and delivers it to every sink except the one
// registered under except.
func (h *Hub) broadcast(kind string, data any, except string) {
	payload, err := chat.Encode(kind, data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", kind).Msg("Failed to encode event")
		return
	}

	sinks := h.getSinkSnapshot()
	h.logger.Debug().
		Str("event", kind).
		Int("targets", h.calculateTargetCount(sinks, except)).
		Msg("Broadcasting event")

	for _, sink := range sinks {
		if except != "" && sink.ID() == except {
			continue
		}
		if !h.safeDeliver(sink, payload) {
			h.logger.Warn().
				Str("conn_id", sink.ID()).
				Str("event", kind).
				Msg("Dropped event for client")
		}
	}
}

// getSinkSnapshot returns a thread-safe snapshot of all current sinks.
func (h *Hub) getSinkSnapshot() []Sink {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sinks := make([]Sink, 0, len(h.sinks))
	for _, sink := range h.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

// calculateTargetCount determines how many sinks will receive the broadcast.
func (h *Hub) calculateTargetCount(sinks []Sink, except string) int {
	targetCount := len(sinks)
	if except == "" {
		return targetCount
	}
	for _, sink := range sinks {
		if sink.ID() == except {
			targetCount--
			break
		}
	}
	return targetCount
}

func (h *Hub) safeDeliver(sink Sink, payload []byte) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Str("conn_id", sink.ID()).Msg("Recovered from panic in safeDeliver")
			delivered = false
		}
	}()
	return sink.Deliver(payload)
}

// shutdownClients closes every registered sink.
func (h *Hub) shutdownClients() {
	h.logger.Info().Msg("Shutting down all client connections...")

	sinks := h.getSinkSnapshot()
	for _, sink := range sinks {
		if client, ok := sink.(*Client); ok {
			client.closeConnection()
			continue
		}
		sink.Close()
	}

	h.logger.Info().Int("clients", len(sinks)).Msg("Closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete or for the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info().Msg("Initiating hub shutdown...")

	h.cancel()
	select {
	case <-h.done:
	case <-time.After(timeout):
		h.logger.Warn().Msg("Hub loop did not stop before the shutdown timeout")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.logger.Warn().Msg("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
