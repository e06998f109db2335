package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Tyrowin/chatroom/internal/chat"
)

const historyTimeout = 10 * time.Second

// HistoryClient reads GET /api/history.
type HistoryClient struct {
	endpoint string
	client   *http.Client
}

// NewHistoryClient returns a fetcher for the server at baseURL.
func NewHistoryClient(baseURL string) (*HistoryClient, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	return &HistoryClient{
		endpoint: joinPath(base, "/api/history").String(),
		client:   &http.Client{Timeout: historyTimeout},
	}, nil
}

// Fetch returns the server's retained messages, oldest first.
func (c *HistoryClient) Fetch(ctx context.Context) ([]chat.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return messages, nil
}
