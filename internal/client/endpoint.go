package client

import (
	"fmt"
	"net/url"
	"strings"
)

// parseBase validates a server base URL such as http://localhost:8080.
func parseBase(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", baseURL)
	}
	return u, nil
}

func joinPath(base *url.URL, path string) *url.URL {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return &u
}

// socketURL returns the WebSocket endpoint for name and the Origin header
// to send with the handshake.
func socketURL(base *url.URL, name string) (endpoint, origin string) {
	u := joinPath(base, "/ws")
	origin = base.Scheme + "://" + base.Host
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"user": []string{name}}.Encode()
	return u.String(), origin
}
