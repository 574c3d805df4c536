// Package chat holds the persistent entities and view DTOs shared by the
// chat, presence and realtime modules.
package chat

import (
	"time"
)

// Friendship status values.
const (
	FriendshipPending  = "PENDING"
	FriendshipAccepted = "ACCEPTED"
	FriendshipBlocked  = "BLOCKED"
)

// Attachment type values.
const (
	AttachmentImage = "IMAGE"
	AttachmentVideo = "VIDEO"
	AttachmentAudio = "AUDIO"
	AttachmentFile  = "FILE"
)

// Message type values.
const (
	MessageTypeText = "TEXT"
	MessageTypeFile = "FILE"
)

// Participant roles.
const (
	RoleMember = 0
	RoleAdmin  = 1
	RoleOwner  = 2
)

// User represents a registered user.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	AvatarURL    string     `gorm:"size:500" json:"avatarUrl"`
	Bio          string     `gorm:"size:500" json:"bio"`
	IsOnline     bool       `gorm:"not null;default:false" json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string { return "users" }

// Friendship is a directed friend request between two users.
type Friendship struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RequesterID string    `gorm:"index:idx_friendship_pair;size:36;not null" json:"requesterId"`
	AddresseeID string    `gorm:"index:idx_friendship_pair;size:36;not null" json:"addresseeId"`
	Status      string    `gorm:"size:16;not null;default:PENDING" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee *User `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
}

// TableName returns the table name for the Friendship entity.
func (Friendship) TableName() string { return "friendships" }

// UserFriend is a bidirectional lookup row kept in sync with accepted
// friendships so listing queries avoid the two-direction OR scan.
type UserFriend struct {
	UserID   string `gorm:"primaryKey;size:36" json:"userId"`
	FriendID string `gorm:"primaryKey;size:36" json:"friendId"`
}

// TableName returns the table name for the UserFriend entity.
func (UserFriend) TableName() string { return "user_friends" }

// Conversation is a DM or group chat. LastMessageID/LastMessageAt are
// updated in the same transaction that creates a message.
type Conversation struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Title         string     `gorm:"size:100" json:"title"`
	AvatarURL     string     `gorm:"size:500" json:"avatarUrl"`
	IsGroup       bool       `gorm:"not null;default:false" json:"isGroup"`
	CreatedBy     string     `gorm:"size:36;not null" json:"createdBy"`
	LastMessageID *string    `gorm:"size:36" json:"lastMessageId"`
	LastMessageAt *time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// TableName returns the table name for the Conversation entity.
func (Conversation) TableName() string { return "conversations" }

// ConversationParticipant links a user to a conversation.
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversationId"`
	UserID         string    `gorm:"primaryKey;size:36" json:"userId"`
	Role           int       `gorm:"not null;default:0" json:"role"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joinedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName returns the table name for the ConversationParticipant entity.
func (ConversationParticipant) TableName() string { return "conversation_participants" }

// Message is immutable once created; there is no edit or delete flow.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36;not null" json:"conversationId"`
	SenderID       string    `gorm:"size:36;not null" json:"senderId"`
	Text           *string   `json:"text"`
	MessageType    string    `gorm:"size:8;not null;default:TEXT" json:"messageType"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`

	Sender      *User        `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string { return "messages" }

// Attachment is a file attached to a message, already uploaded to the
// blob-storage collaborator before the message is sent.
type Attachment struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	MessageID string `gorm:"index;size:36;not null" json:"messageId"`
	URL       string `gorm:"size:500;not null" json:"url"`
	Name      string `gorm:"size:255;not null" json:"name"`
	MimeType  string `gorm:"size:100;not null" json:"mimeType"`
	FileSize  int64  `gorm:"not null" json:"fileSize"`
	Type      string `gorm:"size:8;not null" json:"type"`
}

// TableName returns the table name for the Attachment entity.
func (Attachment) TableName() string { return "attachments" }

// Claims is the identity decoded from a signed credential at handshake
// time; immutable for the connection's lifetime.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SenderView carries the sender display fields of a hydrated message.
type SenderView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// AttachmentView is the client-facing shape of an attachment record.
type AttachmentView struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	Type     string `json:"type"`
}

// MessageView is a persisted message enriched with sender display fields
// and attachment records, ready for client rendering.
type MessageView struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	Text           *string          `json:"text"`
	MessageType    string           `json:"messageType"`
	CreatedAt      time.Time        `json:"createdAt"`
	Sender         SenderView       `json:"sender"`
	Attachments    []AttachmentView `json:"attachments"`
}

// View maps a loaded message (with Sender and Attachments preloaded) to
// its client-facing shape.
func (m *Message) View() *MessageView {
	v := &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Text:           m.Text,
		MessageType:    m.MessageType,
		CreatedAt:      m.CreatedAt,
		Attachments:    make([]AttachmentView, 0, len(m.Attachments)),
	}
	if m.Sender != nil {
		v.Sender = SenderView{ID: m.Sender.ID, Username: m.Sender.Username, AvatarURL: m.Sender.AvatarURL}
	}
	for _, a := range m.Attachments {
		v.Attachments = append(v.Attachments, AttachmentView{
			ID:       a.ID,
			URL:      a.URL,
			Name:     a.Name,
			MimeType: a.MimeType,
			FileSize: a.FileSize,
			Type:     a.Type,
		})
	}
	return v
}

// ConversationSummary is the sidebar listing shape.
type ConversationSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	UserID        string     `json:"userId,omitempty"`
	Avatar        string     `json:"avatar"`
	IsOnline      bool       `json:"isOnline"`
	IsGroup       bool       `json:"isGroup"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

// UserView is a public user profile shape with friendship context.
type UserView struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	AvatarURL        string `json:"avatarUrl"`
	IsOnline         bool   `json:"isOnline"`
	FriendshipStatus string `json:"friendshipStatus,omitempty"`
}
