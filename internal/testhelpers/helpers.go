// Package testhelpers provides common utilities for testing the chat server
// and client.
//
// It provides functions for making HTTP requests, dialing WebSocket
// connections with an allowed origin, and reading the newline separated
// envelopes the hub writes, to reduce duplication across test files.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request with a 5-second timeout,
// failing the test if the request cannot be made.
func MakeRequest(t *testing.T, method, url string, header http.Header) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// WebSocketURL turns an httptest server URL into the /ws endpoint for user.
func WebSocketURL(serverURL, user string) string {
	endpoint := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	if user != "" {
		endpoint += "?user=" + user
	}
	return endpoint
}

// ConnectWebSocket dials url sending origin as the Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendAction writes one action envelope.
func SendAction(conn *websocket.Conn, kind string, data any) error {
	frame, err := chat.Encode(kind, data)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// EnvelopeReader splits batched frames into single envelopes.
type EnvelopeReader struct {
	conn    *websocket.Conn
	pending []chat.Envelope
}

// NewEnvelopeReader wraps conn.
func NewEnvelopeReader(conn *websocket.Conn) *EnvelopeReader {
	return &EnvelopeReader{conn: conn}
}

// Next returns the next envelope, waiting at most timeout for a frame.
func (r *EnvelopeReader) Next(timeout time.Duration) (chat.Envelope, error) {
	for len(r.pending) == 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return chat.Envelope{}, err
		}
		_, frame, err := r.conn.ReadMessage()
		if err != nil {
			return chat.Envelope{}, err
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var env chat.Envelope
			if err := json.Unmarshal(line, &env); err != nil {
				return chat.Envelope{}, err
			}
			r.pending = append(r.pending, env)
		}
	}

	env := r.pending[0]
	r.pending = r.pending[1:]
	return env, nil
}

// NextOfType skips envelopes until one of the given type arrives.
func (r *EnvelopeReader) NextOfType(t *testing.T, kind string, timeout time.Duration) chat.Envelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %s event", kind)
		}
		env, err := r.Next(remaining)
		if err != nil {
			t.Fatalf("Failed waiting for %s event: %v", kind, err)
		}
		if env.Type == kind {
			return env
		}
	}
}

// ExpectNone fails the test if an envelope of kind arrives within wait.
// gorilla connections cannot be read again after a read deadline expires, so
// this must be the last read on the connection.
func (r *EnvelopeReader) ExpectNone(t *testing.T, kind string, wait time.Duration) {
	t.Helper()
	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		env, err := r.Next(remaining)
		if err != nil {
			return
		}
		if env.Type == kind {
			t.Fatalf("Unexpected %s event: %s", kind, string(env.Data))
		}
	}
}
