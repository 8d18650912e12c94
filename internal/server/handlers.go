// Package server exposes HTTP handlers: login, WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomrelay/internal/auth"
)

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUser echoes the identity the token was issued for.
type LoginUser struct {
	Username string `json:"username"`
	ID       int    `json:"id"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    LoginUser `json:"user"`
}

// ErrorResponse is returned for rejected logins and handshakes.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handlers serves the REST and WebSocket endpoints.
type Handlers struct {
	hub            *Hub
	issuer         *auth.Issuer
	verifier       *auth.Verifier
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *zap.Logger
}

// NewHandlers wires handlers for cfg around hub.
func NewHandlers(cfg Config, hub *Hub, origins *OriginPolicy, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		hub:      hub,
		issuer:   auth.NewIssuer(cfg.JWT),
		verifier: auth.NewVerifier(cfg.JWT),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
		maxMessageSize: cfg.MaxMessageSize,
		logger:         logger,
	}
}

// Login issues a credential for any non-empty username/password pair. A body
// that does not decode is treated like missing fields.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("undecodable login body", zap.Error(err))
	}

	token, identity, err := h.issuer.Login(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Success: false, Message: auth.Reason(err)}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		User:    LoginUser{Username: identity.Username, ID: identity.ID},
	}, h.logger)
}

// WebSocket authenticates the handshake, upgrades the connection and hands
// the new client to the hub. Rejected handshakes are never upgraded.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Authenticate(r)
	if err != nil {
		h.logger.Info("rejected handshake", zap.String("addr", r.RemoteAddr), zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Success: false, Message: auth.Reason(err)}, h.logger)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(h.maxMessageSize)

	client := NewClient(conn, h.hub, r.RemoteAddr, identity)

	// The hub launches the pump goroutines.
	if !h.hub.Register(client) {
		_ = conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("error writing JSON response", zap.Error(err))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Relay server is running!")
}

// TestPageHandler serves an HTML page that logs in, connects to the relay
// and exercises rooms, broadcasts and private messages.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
        }
        input[type="text"], input[type="password"] { width: 160px; padding: 5px; margin-right: 6px; }
        button { padding: 5px 12px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .row { margin: 6px 0; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Relay Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div class="row">
        <input type="text" id="username" placeholder="username">
        <input type="password" id="password" placeholder="password">
        <button onclick="login()">Login &amp; connect</button>
        <button onclick="disconnect()">Disconnect</button>
    </div>
    <div class="row">
        <input type="text" id="room" placeholder="room">
        <button onclick="emit('join-room', val('room'))">Join</button>
        <button onclick="emit('leave-room', val('room'))">Leave</button>
    </div>
    <div class="row">
        <input type="text" id="message" placeholder="message">
        <button onclick="emit('message', {message: val('message')})">Broadcast</button>
        <input type="text" id="target" placeholder="target user id">
        <button onclick="emit('private-message', {targetUserId: val('target'), message: val('message')})">Private</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        const eventsDiv = document.getElementById('events');
        const statusDiv = document.getElementById('status');

        function val(id) { return document.getElementById(id).value.trim(); }

        function log(line) {
            const el = document.createElement('div');
            el.textContent = line;
            eventsDiv.appendChild(el);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
        }

        async function login() {
            const resp = await fetch('/api/login', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({username: val('username'), password: val('password')})
            });
            const body = await resp.json();
            if (!body.success) {
                log('login failed: ' + body.message);
                return;
            }
            connect(body.token);
        }

        function connect(token) {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws?token=' + encodeURIComponent(token));
            ws.onopen = () => { log('connected'); updateStatus(true); };
            ws.onmessage = (event) => {
                const env = JSON.parse(event.data);
                log(env.event + ' ' + JSON.stringify(env.data));
            };
            ws.onclose = () => { log('connection closed'); updateStatus(false); ws = null; };
        }

        function disconnect() { if (ws) { ws.close(); } }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: event, data: data}));
            }
        }
    </script>
</body>
</html>`
