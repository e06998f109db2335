package client

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/chat"
)

const (
	DefaultRetryDelay   = 3000 * time.Millisecond
	DefaultTypingExpiry = 3000 * time.Millisecond
	DefaultTypingIdle   = 2000 * time.Millisecond
)

// View is a snapshot of everything the user sees.
type View struct {
	State    State
	Identity string
	Messages []chat.Message
	Online   chat.OnlineView
	Typing   []string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithRetryDelay sets the pause before redialing after a failed or closed
// connection.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Session) {
		s.retryDelay = d
	}
}

// WithTypingExpiry sets how long a remote typing entry lives without a
// refresh.
func WithTypingExpiry(d time.Duration) Option {
	return func(s *Session) {
		s.typingExpiry = d
	}
}

// WithTypingIdle sets how long the local user may pause before an implicit
// stop is sent.
func WithTypingIdle(d time.Duration) Option {
	return func(s *Session) {
		s.typingIdle = d
	}
}

// WithHistoryLimit sets how many messages the session keeps.
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		s.historyLimit = n
	}
}

// Session is one user's connection to the room. All state is owned by a
// single loop goroutine; public methods hand work to it.
type Session struct {
	name    string
	dialer  Dialer
	history HistoryFetcher
	logger  zerolog.Logger

	retryDelay   time.Duration
	typingExpiry time.Duration
	typingIdle   time.Duration
	historyLimit int

	ctx       context.Context
	cancel    context.CancelFunc
	tasks     chan func()
	done      chan struct{}
	updates   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	viewMu sync.RWMutex
	view   View

	// Owned by the loop.
	state        State
	conn         Conn
	connGen      uint64
	messages     []chat.Message
	online       chat.OnlineView
	typing       []string
	typingTimers map[string]*time.Timer
	typingSent   bool
	idleTimer    *time.Timer
	retryTimer   *time.Timer
}

// NewSession creates a session for name. Nothing is dialed until Start.
// history may be nil, in which case no history is loaded.
func NewSession(name string, dialer Dialer, history HistoryFetcher, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		name:         chat.ResolveName(name),
		dialer:       dialer,
		history:      history,
		logger:       zerolog.Nop(),
		retryDelay:   DefaultRetryDelay,
		typingExpiry: DefaultTypingExpiry,
		typingIdle:   DefaultTypingIdle,
		historyLimit: chat.DefaultHistorySize,
		ctx:          ctx,
		cancel:       cancel,
		tasks:        make(chan func()),
		done:         make(chan struct{}),
		updates:      make(chan struct{}, 1),
		state:        StateConnecting,
		online:       chat.OnlineView{Users: []string{}},
		typingTimers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("user", s.name).Logger()
	s.publish()

	go s.run()
	return s
}

// Start dials the server. Calling it again has no effect.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.post(s.connect)
	})
}

// Close tears the session down: timers stop, the connection closes, and the
// state becomes disconnected. Updates is closed once teardown finishes.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Updates receives a value whenever the view changes. It is closed after
// Close.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// View returns a copy of the current view.
func (s *Session) View() View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()

	v := s.view
	v.Messages = slices.Clone(v.Messages)
	v.Online.Users = slices.Clone(v.Online.Users)
	v.Typing = slices.Clone(v.Typing)
	return v
}

// SetComposing reports the current input text. Typing notifications are sent
// only when the text switches between blank and non-blank, and an idle pause
// while typing sends an implicit stop.
func (s *Session) SetComposing(text string) {
	active := strings.TrimSpace(text) != ""
	s.do(func() {
		if !active {
			s.stopIdle()
			s.sendTyping(false)
			return
		}
		s.sendTyping(true)
		s.resetIdle()
	})
}

// SendMessage sends body to the room. Blank bodies and sends while not
// connected are refused.
func (s *Session) SendMessage(body string) error {
	err := ErrSessionClosed
	s.do(func() {
		err = s.sendMessage(body)
	})
	return err
}

// ClearMessages empties the local message window. The server is not told.
func (s *Session) ClearMessages() {
	s.do(func() {
		s.messages = nil
		s.publish()
	})
}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return
		case task := <-s.tasks:
			task()
		}
	}
}

// post queues fn for the loop. It reports false once the session is closing.
func (s *Session) post(fn func()) bool {
	select {
	case s.tasks <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (s *Session) do(fn func()) bool {
	finished := make(chan struct{})
	if !s.post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	<-finished
	return true
}

// schedule runs fn on the loop after d. fn receives its own timer so it can
// tell whether it was superseded.
func (s *Session) schedule(d time.Duration, fn func(t *time.Timer)) *time.Timer {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.post(func() { fn(t) })
	})
	return t
}

func (s *Session) connect() {
	s.connGen++
	gen := s.connGen
	s.setState(StateConnecting)

	go func() {
		conn, err := s.dialer.Dial(s.ctx, s.name)
		posted := s.post(func() { s.dialed(gen, conn, err) })
		if !posted && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Session) dialed(gen uint64, conn Conn, err error) {
	if gen != s.connGen {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		s.logger.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Failed to connect")
		s.setState(StateDisconnected)
		s.scheduleRetry()
		return
	}

	s.logger.Info().Msg("Connected")
	s.conn = conn
	s.typingSent = false
	s.setState(StateConnected)
	go s.pump(gen, conn)
	s.loadHistory()
}

// pump forwards conn's signals to the loop until the connection ends.
func (s *Session) pump(gen uint64, conn Conn) {
	for sig := range conn.Signals() {
		if !s.post(func() { s.handleSignal(gen, sig) }) {
			return
		}
	}
	s.post(func() { s.connectionClosed(gen) })
}

func (s *Session) handleSignal(gen uint64, sig Signal) {
	if gen != s.connGen {
		return
	}

	switch sig.Kind {
	case SignalEvent:
		s.handleEvent(sig.Envelope)
	case SignalReconnecting:
		s.logger.Warn().Msg("Connection lost; reconnecting")
		s.setState(StateReconnecting)
	case SignalReconnected:
		s.logger.Info().Msg("Reconnected")
		s.typingSent = false
		s.setState(StateConnected)
		s.loadHistory()
	}
}

func (s *Session) connectionClosed(gen uint64) {
	if gen != s.connGen {
		return
	}

	s.logger.Warn().Dur("retry_in", s.retryDelay).Msg("Connection closed")
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.typingSent = false
	s.setState(StateDisconnected)
	s.scheduleRetry()
}

func (s *Session) scheduleRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = s.schedule(s.retryDelay, func(t *time.Timer) {
		if s.retryTimer != t {
			return
		}
		s.retryTimer = nil
		s.connect()
	})
}

func (s *Session) loadHistory() {
	if s.history == nil {
		return
	}

	go func() {
		fetched, err := s.history.Fetch(s.ctx)
		s.post(func() {
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to load history")
				return
			}
			s.messages = mergeHistory(s.messages, fetched, s.historyLimit)
			s.publish()
		})
	}()
}

func (s *Session) handleEvent(env chat.Envelope) {
	switch env.Type {
	case chat.EventMessage:
		var msg chat.Message
		if err := env.Decode(&msg); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed message event")
			return
		}
		s.messages = appendUnique(s.messages, msg, s.historyLimit)
		s.removeTyping(msg.Sender)

	case chat.EventPresenceChanged:
		var view chat.OnlineView
		if err := env.Decode(&view); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed presence event")
			return
		}
		if view.Users == nil {
			view.Users = []string{}
		}
		view.Count = len(view.Users)
		s.online = view

	case chat.EventTypingStarted:
		var ev chat.TypingEvent
		if err := env.Decode(&ev); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed typing event")
			return
		}
		if ev.User == s.name {
			return
		}
		s.upsertTyping(ev.User)

	case chat.EventTypingStopped:
		var ev chat.TypingEvent
		if err := env.Decode(&ev); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed typing event")
			return
		}
		s.removeTyping(ev.User)

	default:
		s.logger.Debug().Str("event", env.Type).Msg("Ignoring unknown event")
		return
	}
	s.publish()
}

func (s *Session) upsertTyping(user string) {
	if t, ok := s.typingTimers[user]; ok {
		t.Stop()
	} else {
		s.typing = append(s.typing, user)
	}

	s.typingTimers[user] = s.schedule(s.typingExpiry, func(t *time.Timer) {
		if s.typingTimers[user] != t {
			return
		}
		s.removeTyping(user)
		s.publish()
	})
}

func (s *Session) removeTyping(user string) {
	if t, ok := s.typingTimers[user]; ok {
		t.Stop()
		delete(s.typingTimers, user)
	}
	s.typing = slices.DeleteFunc(s.typing, func(name string) bool {
		return name == user
	})
}

func (s *Session) sendTyping(active bool) {
	if s.state != StateConnected || s.conn == nil || s.typingSent == active {
		return
	}

	s.typingSent = active
	action := chat.ActionStopTyping
	if active {
		action = chat.ActionStartTyping
	}
	if err := s.conn.Send(action, chat.TypingAction{Sender: s.name}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to send typing state")
	}
}

func (s *Session) resetIdle() {
	s.stopIdle()
	s.idleTimer = s.schedule(s.typingIdle, func(t *time.Timer) {
		if s.idleTimer != t {
			return
		}
		s.idleTimer = nil
		s.sendTyping(false)
	})
}

func (s *Session) stopIdle() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Session) sendMessage(body string) error {
	if s.state != StateConnected || s.conn == nil {
		return ErrNotConnected
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyMessage
	}

	err := s.conn.Send(chat.ActionSendMessage, chat.SendMessageAction{Sender: s.name, Body: body})
	s.stopIdle()
	s.typingSent = false
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send message")
	}
	return err
}

func (s *Session) setState(state State) {
	s.state = state
	s.publish()
}

// publish copies the loop state into the shared view and wakes Updates.
func (s *Session) publish() {
	v := View{
		State:    s.state,
		Identity: s.name,
		Messages: slices.Clone(s.messages),
		Online: chat.OnlineView{
			Count: s.online.Count,
			Users: slices.Clone(s.online.Users),
		},
		Typing: slices.Clone(s.typing),
	}

	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) teardown() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.stopIdle()
	for user, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, user)
	}
	s.typing = nil

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Error closing connection")
		}
		s.conn = nil
	}
	s.connGen++
	s.setState(StateDisconnected)
	close(s.updates)
	s.logger.Info().Msg("Session closed")
}
