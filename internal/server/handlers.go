package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/router"
)

// HealthText is the body served by HealthHandler.
const HealthText = "Rendezvous server is running!"

// WebSocketHandler upgrades the request and hands the connection to the hub.
// The query string carries the handshake, e.g. ?user=alice&room=lobby.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Addr(r.RemoteAddr), logging.Err(err))
		return
	}

	params := router.ParseParams(r.URL.RawQuery)
	client := NewClient(conn, s.hub, s.cfg, r.RemoteAddr, params)

	if !s.hub.Register(client) {
		s.logger.Info("rejecting connection during shutdown", logging.Addr(r.RemoteAddr))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

// RootHandler accepts WebSocket upgrades on any path and answers plain HTTP
// requests with the health check.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// HealthHandler responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, HealthText)
}

// TestPageHandler serves an HTML page for trying the relay from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		slog.Warn("error writing HTML response", logging.Err(err))
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Rendezvous WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            white-space: pre-wrap;
        }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        textarea { width: 520px; height: 60px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Rendezvous WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="userInput" placeholder="user">
        <input type="text" id="roomInput" placeholder="room">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <textarea id="messageInput" disabled>{"protocol":"one-to-self","data":"hello"}</textarea>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addMessage(message, type) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = type === 'sent' ? 'blue' : type === 'received' ? 'green' : 'gray';
            el.textContent = (type === 'sent' ? 'You: ' : type === 'received' ? 'Relay: ' : '') + message;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const params = [];
            const user = document.getElementById('userInput').value.trim();
            const room = document.getElementById('roomInput').value.trim();
            params.push('user=' + encodeURIComponent(user));
            if (room) {
                params.push('room=' + encodeURIComponent(room));
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws?' + params.join('&'));

            ws.onopen = function() { addMessage('Connected to relay'); updateStatus(true); };
            ws.onmessage = function(event) { addMessage(event.data, 'received'); };
            ws.onclose = function() { addMessage('Connection closed'); updateStatus(false); ws = null; };
            ws.onerror = function() { addMessage('Connection error'); updateStatus(false); };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(message);
                addMessage(message, 'sent');
            }
        }
    </script>
</body>
</html>`
