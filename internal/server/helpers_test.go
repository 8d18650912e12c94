package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomrelay/internal/auth"
)

const (
	testSecret    = "relay-test-secret"
	testOriginURL = "http://localhost:3000"
	eventTimeout  = 2 * time.Second
)

// receivedEvent is an outbound envelope decoded on the client side.
type receivedEvent struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func testConfig() Config {
	cfg := NewConfig()
	cfg.JWT.SecretKey = testSecret
	return *cfg
}

// startHub runs a fresh hub for the test and shuts it down on cleanup.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(NewRegistry(), zap.NewNop())
	hub.now = func() time.Time {
		return time.Date(2024, 5, 1, 12, 30, 45, 123_000_000, time.UTC)
	}
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(2 * time.Second) })
	return hub
}

// attach registers a client without a network connection; its frames are
// read straight from the send channel.
func attach(t *testing.T, hub *Hub, id int, username string) *Client {
	t.Helper()
	c := NewClient(nil, hub, "test", auth.Identity{ID: id, Username: username, Email: username + "@example.com"})
	require.True(t, hub.Register(c))
	return c
}

func emit(t *testing.T, hub *Hub, c *Client, event string, data any) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		require.NoError(t, err)
		raw = encoded
	}
	require.True(t, hub.Dispatch(c, Envelope{Event: event, Data: raw}))
}

// settle waits until the loop has processed everything dispatched before it.
func settle(t *testing.T, hub *Hub) {
	t.Helper()
	require.True(t, hub.Inspect(func(*Registry) {}))
}

func nextEvent(t *testing.T, c *Client) receivedEvent {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev receivedEvent
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(eventTimeout):
		t.Fatalf("no event for %s", c.identity.Username)
		return receivedEvent{}
	}
}

func expectNoEvent(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	settle(t, hub)
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected event for %s: %s", c.identity.Username, frame)
	default:
	}
}

// newTestServer serves the full router over httptest.
func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(NewRegistry(), zap.NewNop())
	go hub.Run()

	ts := httptest.NewServer(NewRouter(testConfig(), hub, zap.NewNop()))
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func issueFor(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, err := auth.NewIssuer(auth.JWTConfig{SecretKey: testSecret}).Issue(identity)
	require.NoError(t, err)
	return token
}

func login(t *testing.T, ts *httptest.Server, username, password string) *http.Response {
	t.Helper()
	body, err := json.Marshal(LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func dial(url string, header http.Header) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Origin", testOriginURL)
	return dialer.Dial(url, header)
}

// connect opens an authenticated connection for identity and waits until the
// hub has registered it.
func connect(t *testing.T, ts *httptest.Server, hub *Hub, identity auth.Identity) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount()
	conn, resp, err := dial(wsURL(ts)+"?token="+issueFor(t, identity), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() > before }, eventTimeout, 5*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func readEvent(t *testing.T, conn *websocket.Conn) receivedEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(eventTimeout)))
	var ev receivedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, frame, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %s", frame)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// inRoom polls the registry until some client of username is in room.
func inRoom(hub *Hub, username, room string) func() bool {
	return func() bool {
		found := false
		hub.Inspect(func(r *Registry) {
			for _, c := range r.Members(room, nil) {
				if c.identity.Username == username {
					found = true
				}
			}
		})
		return found
	}
}

func testIdentity(username string) auth.Identity {
	return auth.NewIdentity(username)
}
