// Package server exposes HTTP handlers, including WebSocket upgrades, the
// history query, health checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/config"
)

// Handlers serves the HTTP endpoints of one hub.
type Handlers struct {
	hub      *Hub
	cfg      config.Config
	origins  *OriginPolicy
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandlers builds the HTTP handlers for hub using cfg's origin and size
// limits.
func NewHandlers(hub *Hub, cfg config.Config, logger zerolog.Logger) *Handlers {
	cfg = config.Sanitize(cfg)
	origins := NewOriginPolicy(cfg.AllowedOrigins, logger)
	return &Handlers{
		hub:     hub,
		cfg:     cfg,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
		logger: logger,
	}
}

// WebSocket validates that the request uses GET, upgrades it, and registers
// a Client under the name given in the "user" query parameter. The hub then
// launches the client's pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, r.URL.Query().Get("user"), h.cfg)
	if !h.hub.Register(client) {
		client.closeConnection()
	}
}

// History serves the current message window as a JSON array, oldest first.
func (h *Handlers) History(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.History(), h.logger)
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

type statusResponse struct {
	Status  string   `json:"status"`
	Clients int      `json:"clients"`
	Online  []string `json:"online"`
}

// Status reports connection and presence counts as JSON.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Clients: h.hub.ClientCount(),
		Online:  h.hub.Online().Users,
	}, h.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn().Err(err).Msg("Error writing JSON response")
	}
}

// TestPageHandler serves an HTML page for trying the chat protocol from a
// browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Room Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #typing { color: gray; font-style: italic; min-height: 1em; }
    </style>
</head>
<body>
    <h1>Chat Room Test</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div id="online">0 online</div>
    <div>
        <input type="text" id="nameInput" placeholder="Nickname">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div id="messages"></div>
    <div id="typing"></div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        let typing = false;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const nameInput = document.getElementById('nameInput');

        function nickname() { return nameInput.value.trim(); }

        function addLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function send(type, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: type, data: data}));
            }
        }

        function updateStatus(connected) {
            const statusDiv = document.getElementById('status');
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            document.getElementById('sendButton').disabled = !connected;
            document.getElementById('connectButton').textContent = connected ? 'Disconnect' : 'Connect';
        }

        function handleEvent(env) {
            if (env.type === 'message') {
                addLine('[' + new Date(env.data.sentAt).toLocaleTimeString() + '] ' + env.data.sender + ': ' + env.data.body);
            } else if (env.type === 'presenceChanged') {
                const users = (env.data && env.data.users) || [];
                document.getElementById('online').textContent = users.length + ' online: ' + users.join(', ');
            } else if (env.type === 'typingStarted') {
                document.getElementById('typing').textContent = env.data.user + ' is typing...';
            } else if (env.type === 'typingStopped') {
                document.getElementById('typing').textContent = '';
            }
        }

        function connect() {
            fetch('/api/history').then(r => r.json()).then(list => list.forEach(m => handleEvent({type: 'message', data: m})));
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws?user=' + encodeURIComponent(nickname()));
            ws.onopen = function() { updateStatus(true); };
            ws.onmessage = function(event) {
                event.data.split('\n').filter(Boolean).forEach(line => handleEvent(JSON.parse(line)));
            };
            ws.onclose = function() { updateStatus(false); ws = null; };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) { ws.close(); } else { connect(); }
        }

        function sendMessage() {
            const body = messageInput.value.trim();
            if (!body) { return; }
            send('sendMessage', {sender: nickname(), body: body});
            messageInput.value = '';
            typing = false;
        }

        messageInput.addEventListener('input', function() {
            const active = messageInput.value.trim() !== '';
            if (active !== typing) {
                typing = active;
                send(active ? 'startTyping' : 'stopTyping', {sender: nickname()});
            }
        });
        messageInput.addEventListener('keypress', function(e) { if (e.key === 'Enter') { sendMessage(); } });
    </script>
</body>
</html>`
