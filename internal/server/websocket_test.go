package server

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/auth"
)

func rejectedHandshake(t *testing.T, url string, header http.Header) ErrorResponse {
	t.Helper()
	conn, resp, err := dial(url, header)
	if conn != nil {
		_ = conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	return got
}

func TestHandshakeRejections(t *testing.T) {
	ts, hub := newTestServer(t)

	t.Run("no token", func(t *testing.T) {
		got := rejectedHandshake(t, wsURL(ts), nil)
		assert.Equal(t, "Authentication error: No token provided", got.Message)
	})

	t.Run("malformed token", func(t *testing.T) {
		got := rejectedHandshake(t, wsURL(ts)+"?token=abc.def.ghi", nil)
		assert.Equal(t, "Authentication error: Invalid token", got.Message)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := auth.NewIssuer(auth.JWTConfig{SecretKey: "other"}).Issue(testIdentity("alice"))
		require.NoError(t, err)
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)
		got := rejectedHandshake(t, wsURL(ts), header)
		assert.Equal(t, "Authentication error: Invalid token", got.Message)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := auth.NewIssuer(auth.JWTConfig{SecretKey: testSecret, TokenDuration: -time.Minute}).
			Issue(testIdentity("alice"))
		require.NoError(t, err)
		got := rejectedHandshake(t, wsURL(ts)+"?token="+token, nil)
		assert.Equal(t, "Authentication error: Invalid token", got.Message)
	})

	assert.Zero(t, hub.ClientCount())
}

func TestHandshakeWithBearerHeader(t *testing.T) {
	ts, hub := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+issueFor(t, testIdentity("alice")))
	conn, resp, err := dial(wsURL(ts), header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, eventTimeout, 5*time.Millisecond)
}

func TestLoginThenConnect(t *testing.T) {
	ts, hub := newTestServer(t)

	resp := login(t, ts, "alice", "pw")
	var body LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()

	conn, wsResp, err := dial(wsURL(ts)+"?token="+body.Token, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = wsResp.Body.Close()

	send(t, conn, EventMessage, map[string]any{"message": "hello"})
	ev := readEvent(t, conn)
	assert.Equal(t, EventMessage, ev.Event)
	assert.Equal(t, "alice", ev.Data["username"])
	assert.Equal(t, float64(1), ev.Data["userId"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestJoinRoomOverWebSocket(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))
	bob := connect(t, ts, hub, testIdentity("bob"))

	send(t, bob, EventJoinRoom, "lobby")
	require.Eventually(t, inRoom(hub, "bob", "lobby"), eventTimeout, 5*time.Millisecond)

	send(t, alice, EventJoinRoom, "lobby")

	ev := readEvent(t, bob)
	assert.Equal(t, EventUserJoined, ev.Event)
	assert.Equal(t, "alice", ev.Data["username"])
	assert.Equal(t, "alice joined the room", ev.Data["message"])

	expectNoMessage(t, alice, 200*time.Millisecond)
}

func TestBroadcastOverWebSocket(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))
	bob := connect(t, ts, hub, testIdentity("bob"))
	carol := connect(t, ts, hub, testIdentity("carol"))

	send(t, alice, EventMessage, map[string]any{"message": "hi"})

	for _, conn := range []*websocket.Conn{alice, bob, carol} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventMessage, ev.Event)
		assert.Equal(t, "alice", ev.Data["username"])
		assert.Equal(t, "hi", ev.Data["message"])
		assert.Regexp(t, isoTimestamp, ev.Data["timestamp"])
	}
}

func TestPrivateMessageOverWebSocket(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))
	bob := connect(t, ts, hub, auth.Identity{ID: 2, Username: "bob", Email: "bob@example.com"})
	carol := connect(t, ts, hub, testIdentity("carol"))

	send(t, alice, EventJoinRoom, UserRoomName("2"))
	require.Eventually(t, inRoom(hub, "alice", "user-2"), eventTimeout, 5*time.Millisecond)

	send(t, bob, EventPrivateMessage, map[string]any{"targetUserId": 2, "message": "secret"})

	ev := readEvent(t, alice)
	assert.Equal(t, EventPrivateMessage, ev.Event)
	assert.Equal(t, "bob", ev.Data["from"])
	assert.Equal(t, float64(2), ev.Data["fromId"])
	assert.Equal(t, "secret", ev.Data["message"])

	expectNoMessage(t, bob, 200*time.Millisecond)
	expectNoMessage(t, carol, 200*time.Millisecond)
}

func TestMalformedFramesKeepConnectionAlive(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"data":"no event"}`)))
	send(t, alice, EventLeaveRoom, "never-joined")
	send(t, alice, EventMessage, map[string]any{"message": "still here"})

	ev := readEvent(t, alice)
	assert.Equal(t, "still here", ev.Data["message"])
}

func TestOversizedFrameClosesOnlyThatConnection(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))
	bob := connect(t, ts, hub, testIdentity("bob"))

	huge := make([]byte, 2*defaultMaxMessageSize)
	for i := range huge {
		huge[i] = 'a'
	}
	// The server may close before the whole frame is flushed.
	_ = alice.WriteMessage(websocket.TextMessage, huge)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, eventTimeout, 5*time.Millisecond)

	send(t, bob, EventMessage, map[string]any{"message": "fine"})
	assert.Equal(t, "fine", readEvent(t, bob).Data["message"])
}

func TestDisconnectSendsNoNotification(t *testing.T) {
	ts, hub := newTestServer(t)
	alice := connect(t, ts, hub, testIdentity("alice"))
	bob := connect(t, ts, hub, testIdentity("bob"))

	send(t, alice, EventJoinRoom, "lobby")
	require.Eventually(t, inRoom(hub, "alice", "lobby"), eventTimeout, 5*time.Millisecond)
	send(t, bob, EventJoinRoom, "lobby")
	assert.Equal(t, EventUserJoined, readEvent(t, alice).Event)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, eventTimeout, 5*time.Millisecond)

	hub.Inspect(func(r *Registry) {
		assert.Len(t, r.Members("lobby", nil), 1)
	})
	expectNoMessage(t, alice, 200*time.Millisecond)
}

func TestGracefulShutdownClosesConnections(t *testing.T) {
	ts, hub := newTestServer(t)
	conns := []*websocket.Conn{
		connect(t, ts, hub, testIdentity("alice")),
		connect(t, ts, hub, testIdentity("bob")),
	}

	require.NoError(t, hub.Shutdown(5*time.Second))

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	}
}
