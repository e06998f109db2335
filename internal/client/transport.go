package client

import (
	"context"
	"errors"

	"github.com/Tyrowin/chatroom/internal/chat"
)

var (
	// ErrNotConnected is returned when an action is attempted without a live
	// connection.
	ErrNotConnected = errors.New("not connected")
	// ErrEmptyMessage is returned for messages that are blank after trimming.
	ErrEmptyMessage = errors.New("empty message")
	// ErrSessionClosed is returned by a Session after Close.
	ErrSessionClosed = errors.New("session closed")
)

// SignalKind tells what a Signal carries.
type SignalKind int

const (
	// SignalEvent carries one server event in Envelope.
	SignalEvent SignalKind = iota
	// SignalReconnecting reports that the transport lost its socket and is
	// trying to get it back.
	SignalReconnecting
	// SignalReconnected reports that the transport recovered.
	SignalReconnected
)

// Signal is one item from a Conn: an inbound event or a lifecycle change.
type Signal struct {
	Kind     SignalKind
	Envelope chat.Envelope
}

// Conn is a live connection to the chat server. Signals is closed when the
// connection is gone for good.
type Conn interface {
	Signals() <-chan Signal
	Send(action string, data any) error
	Close() error
}

// Dialer opens a connection on behalf of the named user.
type Dialer interface {
	Dial(ctx context.Context, name string) (Conn, error)
}

// HistoryFetcher loads the server's retained messages, oldest first.
type HistoryFetcher interface {
	Fetch(ctx context.Context) ([]chat.Message, error)
}
