package chat

import (
	"errors"
	"net/url"
	"unicode/utf8"

	"github.com/google/uuid"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// Validation constants.
const (
	MaxTextLength     = 5000
	MaxTitleLength    = 100
	MaxAttachments    = 10
	DefaultPageLimit  = 20
	MaxPageLimit      = 100
	MinGroupMembers   = 3
)

// Validation and authorization errors.
var (
	ErrInvalidConversationID = errors.New("conversation id must be a valid uuid")
	ErrEmptyMessage          = errors.New("message must contain text or attachments")
	ErrTextTooLong           = errors.New("message text exceeds maximum length")
	ErrTextInvalid           = errors.New("message text contains invalid characters")
	ErrInvalidAttachment     = errors.New("attachment is missing required fields")
	ErrAttachmentType        = errors.New("attachment type must be IMAGE, VIDEO, AUDIO or FILE")
	ErrTooManyAttachments    = errors.New("too many attachments")
	ErrNotParticipant        = errors.New("user is not a member of this conversation")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrSelfConversation      = errors.New("cannot start a conversation with yourself")
	ErrConversationExists    = errors.New("a conversation between these users already exists")
	ErrGroupTitleRequired    = errors.New("group name is required")
	ErrGroupTooSmall         = errors.New("a group must have at least 3 total members")
	ErrSelfFriendRequest     = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends        = errors.New("users are already friends")
	ErrRequestPending        = errors.New("a friend request is already pending between these users")
	ErrFriendshipNotFound    = errors.New("friend request not found")
)

// AttachmentInput is the client-supplied shape of one attachment on a
// message send. The file itself was uploaded beforehand; url points at the
// blob-storage copy.
type AttachmentInput struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	Type     string `json:"type"`
}

// SendMessageInput is the full input to the message delivery pipeline.
// SenderConnID identifies the websocket connection that initiated the send
// and is excluded from the fan-out broadcast; it is empty for REST sends.
type SendMessageInput struct {
	ConversationID string            `json:"conversationId"`
	SenderID       string            `json:"-"`
	SenderConnID   string            `json:"-"`
	Text           string            `json:"text"`
	Attachments    []AttachmentInput `json:"attachments"`
}

// MessagePage is one page of history, oldest first, with the cursor for
// the next (older) page.
type MessagePage struct {
	Messages   []*domain.MessageView `json:"messages"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// FriendshipList groups a user's friendships for the client.
type FriendshipList struct {
	Accepted         []domain.Friendship `json:"accepted"`
	IncomingRequests []domain.Friendship `json:"incomingRequests"`
	OutgoingRequests []domain.Friendship `json:"outgoingRequests"`
}

// validateSendMessage enforces the message payload shape. A message with
// neither text nor attachments is rejected.
func validateSendMessage(in SendMessageInput) error {
	if _, err := uuid.Parse(in.ConversationID); err != nil {
		return ErrInvalidConversationID
	}
	if in.Text == "" && len(in.Attachments) == 0 {
		return ErrEmptyMessage
	}
	if len(in.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if !utf8.ValidString(in.Text) {
		return ErrTextInvalid
	}
	if len(in.Attachments) > MaxAttachments {
		return ErrTooManyAttachments
	}
	for _, a := range in.Attachments {
		if err := validateAttachment(a); err != nil {
			return err
		}
	}
	return nil
}

func validateAttachment(a AttachmentInput) error {
	if a.URL == "" || a.Name == "" || a.MimeType == "" || a.FileSize <= 0 {
		return ErrInvalidAttachment
	}
	if _, err := url.ParseRequestURI(a.URL); err != nil {
		return ErrInvalidAttachment
	}
	switch a.Type {
	case domain.AttachmentImage, domain.AttachmentVideo, domain.AttachmentAudio, domain.AttachmentFile:
		return nil
	default:
		return ErrAttachmentType
	}
}
