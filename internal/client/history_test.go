package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatroom/internal/chat"
)

func TestParseBase(t *testing.T) {
	for _, raw := range []string{"http://localhost:8080", "https://chat.example.com/", " http://127.0.0.1:9000 "} {
		_, err := parseBase(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"", "localhost:8080", "ftp://host", "http://", "ws://localhost:8080"} {
		_, err := parseBase(raw)
		assert.Error(t, err, raw)
	}
}

func TestSocketURL(t *testing.T) {
	base, err := parseBase("https://chat.example.com/room/")
	require.NoError(t, err)

	endpoint, origin := socketURL(base, "Ana Maria")
	assert.Equal(t, "wss://chat.example.com/room/ws?user=Ana+Maria", endpoint)
	assert.Equal(t, "https://chat.example.com", origin)

	base, err = parseBase("http://localhost:8080")
	require.NoError(t, err)
	endpoint, origin = socketURL(base, "Bob")
	assert.Equal(t, "ws://localhost:8080/ws?user=Bob", endpoint)
	assert.Equal(t, "http://localhost:8080", origin)
}

func TestHistoryClientFetch(t *testing.T) {
	want := []chat.Message{
		{Sender: "Ana", Body: "oi", SentAt: at(1)},
		{Sender: "Bob", Body: "olá", SentAt: at(2)},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/history" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer ts.Close()

	hc, err := NewHistoryClient(ts.URL)
	require.NoError(t, err)

	got, err := hc.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, want[0].SameAs(got[0]))
	assert.True(t, want[1].SameAs(got[1]))
}

func TestHistoryClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			hc, err := NewHistoryClient(ts.URL)
			require.NoError(t, err)
			_, err = hc.Fetch(context.Background())
			assert.Error(t, err)
		})
	}

	_, err := NewHistoryClient("not a url")
	assert.Error(t, err)
}
