package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// MessageCreatedEvent is emitted after a message has been persisted
// together with the conversation's last-message pointer. SenderConnID is
// the websocket connection that initiated the send; the realtime consumer
// excludes it from the room broadcast so the sender only sees the message
// through its acknowledgment.
type MessageCreatedEvent struct {
	ConversationID string             `json:"conversation_id"`
	SenderConnID   string             `json:"sender_conn_id,omitempty"`
	Message        domain.MessageView `json:"message"`
}

// UserOnlineEvent is emitted when a user's connection count transitions
// from zero to one. ConnID identifies the connection that caused the
// transition so it can be excluded from the broadcast.
type UserOnlineEvent struct {
	UserID    string    `json:"user_id"`
	ConnID    string    `json:"conn_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserOfflineEvent is emitted when a user's last connection closes. It is
// broadcast to every connection, including other sessions of the same
// user, which simplifies multi-device state reconciliation.
type UserOfflineEvent struct {
	UserID   string    `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

// Event definitions for the chat and presence modules.
var (
	MessageCreatedV1 = helper.EventDefinition[MessageCreatedEvent](
		"chat",
		"MessageCreated",
		"v1",
	)

	UserOnlineV1 = helper.EventDefinition[UserOnlineEvent](
		"presence",
		"UserOnline",
		"v1",
	)

	UserOfflineV1 = helper.EventDefinition[UserOfflineEvent](
		"presence",
		"UserOffline",
		"v1",
	)
)
