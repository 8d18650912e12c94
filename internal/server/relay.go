package server

import (
	"encoding/json"

	"go.uber.org/zap"
)

// handleEvent routes one inbound envelope. Unknown events are ignored.
func (h *Hub) handleEvent(client *Client, env Envelope) {
	if !h.registry.Contains(client) {
		return
	}

	switch env.Event {
	case EventJoinRoom:
		h.joinRoom(client, payloadKey(env.Data))
	case EventLeaveRoom:
		h.leaveRoom(client, payloadKey(env.Data))
	case EventMessage:
		h.broadcastMessage(client, env.Data)
	case EventPrivateMessage:
		h.sendPrivateMessage(client, env.Data)
	default:
		client.logger.Debug("ignoring unknown event", zap.String("event", env.Event))
	}
}

func (h *Hub) joinRoom(client *Client, room string) {
	if room == "" {
		client.logger.Debug("join-room without a room name")
		return
	}

	h.registry.Join(client, room)
	client.logger.Info("joined room", zap.String("room", room))

	username := client.identity.Username
	h.emitToRoom(room, client, EventUserJoined, PresenceNotice{
		Username: username,
		Message:  username + " joined the room",
	})
}

// leaveRoom leaves first and then notifies whoever remains, whether or not
// the client was a member.
func (h *Hub) leaveRoom(client *Client, room string) {
	if room == "" {
		client.logger.Debug("leave-room without a room name")
		return
	}

	h.registry.Leave(client, room)
	client.logger.Info("left room", zap.String("room", room))

	username := client.identity.Username
	h.emitToRoom(room, client, EventUserLeft, PresenceNotice{
		Username: username,
		Message:  username + " left the room",
	})
}

// broadcastMessage fans out to every connection, the sender included.
func (h *Hub) broadcastMessage(client *Client, data json.RawMessage) {
	var req MessageRequest
	if err := decodePayload(data, &req); err != nil {
		client.logger.Debug("undecodable message payload", zap.Error(err))
	}

	client.logger.Info("message", zap.Any("data", req.Message))

	h.emitToAll(EventMessage, ChatMessage{
		Username:  client.identity.Username,
		UserID:    client.identity.ID,
		Message:   req.Message,
		Timestamp: formatTimestamp(h.now()),
	})
}

// sendPrivateMessage delivers to the target's per-user room. Nobody in the
// room means the message is dropped and the sender is not told.
func (h *Hub) sendPrivateMessage(client *Client, data json.RawMessage) {
	var req PrivateMessageRequest
	if err := decodePayload(data, &req); err != nil {
		client.logger.Debug("undecodable private-message payload", zap.Error(err))
	}

	room := UserRoomName(idKey(req.TargetUserID))
	h.emitToRoom(room, client, EventPrivateMessage, PrivateMessage{
		From:      client.identity.Username,
		FromID:    client.identity.ID,
		Message:   req.Message,
		Timestamp: formatTimestamp(h.now()),
	})
}

func (h *Hub) emitToAll(event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.deliver(h.registry.Clients(), frame)
}

// emitToRoom sends to the members of room other than except.
func (h *Hub) emitToRoom(room string, except *Client, event string, payload any) {
	targets := h.registry.Members(room, except)
	if len(targets) == 0 {
		return
	}

	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.deliver(targets, frame)
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	frame, err := json.Marshal(outboundEnvelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return frame, true
}
