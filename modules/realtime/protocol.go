package realtime

import (
	"encoding/json"
	"time"

	"github.com/Keshujangid/Chat-app/modules/chat"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// LocalsUserKey is the request-locals key under which the upgrade
// middleware stores the authenticated identity.
const LocalsUserKey = "user"

// Socket event names. Client-to-server requests that expect a reply carry
// a ref which the ack echoes back.
const (
	EventConversationJoin   = "conversation:join"
	EventConversationLeave  = "conversation:leave"
	EventRequestOnlineUsers = "conversation:request-online-users"
	EventConversationOnline = "conversation:online-users"
	EventMessageSend        = "message:send"
	EventMessageNew         = "message:new"
	EventUserTyping         = "user:typing"
	EventUserStopTyping     = "user:stop-typing"
	EventUserJoined         = "user:joined"
	EventUserLeft           = "user:left"
	EventUserOnline         = "user:online"
	EventUserOffline        = "user:offline"
	EventOnlineSnapshot     = "users:online"
	EventAck                = "ack"
	EventError              = "error"
)

// Ack status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the JSON frame exchanged over the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ref   string          `json:"ref,omitempty"`
	Error string          `json:"error,omitempty"`
}

// AckPayload answers a message:send. Exactly one of Message or Error is
// set; the sender receives its own message only through this channel,
// never through the room broadcast.
type AckPayload struct {
	Status  string              `json:"status"`
	Message *domain.MessageView `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// JoinPayload addresses a conversation room.
type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendMessagePayload is the client shape of a message send.
type SendMessagePayload struct {
	ConversationID string                 `json:"conversationId"`
	Text           string                 `json:"text"`
	Attachments    []chat.AttachmentInput `json:"attachments"`
}

// TypingPayload is the fire-and-forget typing indicator.
type TypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

// RoomEventPayload notifies room members of a join or leave.
type RoomEventPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

// OnlineUsersPayload is the room-scoped online snapshot.
type OnlineUsersPayload struct {
	ConversationID string   `json:"conversationId"`
	OnlineUsers    []string `json:"onlineUsers"`
}

// PresenceOnlinePayload announces a user's first connection.
type PresenceOnlinePayload struct {
	UserID string `json:"userId"`
}

// PresenceOfflinePayload announces a user's last disconnect.
type PresenceOfflinePayload struct {
	UserID   string    `json:"userId"`
	LastSeen time.Time `json:"lastSeen"`
}

// roomKey names the broadcast scope for one conversation.
func roomKey(conversationID string) string {
	return "convo:" + conversationID
}

// decodeConversationID accepts either a bare string id or a
// {"conversationId": ...} object, which is what different client
// versions send for join/leave.
func decodeConversationID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	return payload.ConversationID, nil
}
