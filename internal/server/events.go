// Package server defines the event envelope and payload types exchanged over
// the WebSocket channel.
package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Client to server events.
const (
	EventJoinRoom       = "join-room"
	EventLeaveRoom      = "leave-room"
	EventMessage        = "message"
	EventPrivateMessage = "private-message"
)

// Server to client events. EventMessage and EventPrivateMessage are reused in
// this direction.
const (
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
)

// isoMillis matches the millisecond UTC form browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Envelope is one WebSocket text frame: an event name and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PresenceNotice is sent to room peers as user-joined and user-left.
type PresenceNotice struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatMessage is the process-wide broadcast.
type ChatMessage struct {
	Username  string `json:"username"`
	UserID    int    `json:"userId"`
	Message   any    `json:"message"`
	Timestamp string `json:"timestamp"`
}

// PrivateMessage is delivered to the members of a per-user room.
type PrivateMessage struct {
	From      string `json:"from"`
	FromID    int    `json:"fromId"`
	Message   any    `json:"message"`
	Timestamp string `json:"timestamp"`
}

// MessageRequest is the inbound payload of a message event.
type MessageRequest struct {
	Message any `json:"message"`
}

// PrivateMessageRequest is the inbound payload of a private-message event.
type PrivateMessageRequest struct {
	TargetUserID any `json:"targetUserId"`
	Message      any `json:"message"`
}

// UserRoomName is the room a connection joins to receive private messages
// addressed to user id. Nothing joins it automatically.
func UserRoomName(id string) string {
	return "user-" + id
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// decodePayload unmarshals data into v keeping numbers in their literal form.
// Payloads are not validated: on failure v keeps its zero value.
func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// payloadKey renders a scalar payload as a room or user key: strings as-is,
// numbers in their literal form, anything else as compact JSON. Missing and
// null payloads give "".
func payloadKey(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return strings.TrimSpace(string(data))
	}
	return compact.String()
}

// idKey renders a decoded id value the same way payloadKey renders raw JSON.
func idKey(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		raw, err := json.Marshal(id)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
