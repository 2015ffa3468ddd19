package gateway

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op codes for gateway payloads.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpPresenceUpdate = 3
	OpResume         = 6
	OpReconnect      = 7
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady            = "READY"
	EventMessageCreate    = "MESSAGE_CREATE"
	EventMessageDelete    = "MESSAGE_DELETE"
	EventChatCreate       = "CHAT_CREATE"
	EventChatUpdate       = "CHAT_UPDATE"
	EventChatMemberAdd    = "CHAT_MEMBER_ADD"
	EventChatMemberRemove = "CHAT_MEMBER_REMOVE"
	EventTypingStart      = "TYPING_START"
	EventPresenceUpdate   = "PRESENCE_UPDATE"
)

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is sent by the client in an Op 6 RESUME.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID string               `json:"session_id"`
	UserID    primitive.ObjectID   `json:"user_id"`
	Chats     []primitive.ObjectID `json:"chats"`
}

// Event is a dispatch event ready to broadcast.
type Event struct {
	Name string
	Data any
}

// TypingStartData is the payload for TYPING_START events.
type TypingStartData struct {
	ChatID    primitive.ObjectID `json:"chat_id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Timestamp int64              `json:"timestamp"`
}

// PresenceUpdateData is the payload for PRESENCE_UPDATE events.
type PresenceUpdateData struct {
	UserID primitive.ObjectID `json:"user_id"`
	Status string             `json:"status"`
}

// ClientPresenceUpdate is sent by the client in an Op 3 PRESENCE_UPDATE.
type ClientPresenceUpdate struct {
	Status string `json:"status"`
}
