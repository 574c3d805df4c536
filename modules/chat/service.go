package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
	"github.com/Keshujangid/Chat-app/events"
)

// Service implements the message delivery pipeline and the conversation
// and friendship operations on top of the repository.
type Service struct {
	repo   *Repository
	bus    mono.EventBus
	logger *slog.Logger
}

// NewService creates a new chat service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, logger: slog.Default()}
}

// SetEventBus attaches the event bus used for message fan-out. Without a
// bus the pipeline still persists and acks; only the broadcast is skipped.
func (s *Service) SetEventBus(bus mono.EventBus) { s.bus = bus }

// SendMessage validates, authorizes and atomically persists a message,
// then publishes the hydrated result for room fan-out and returns it so
// the caller can acknowledge the sender directly.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*domain.MessageView, error) {
	if err := validateSendMessage(in); err != nil {
		return nil, err
	}

	ok, err := s.repo.IsParticipant(in.ConversationID, in.SenderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		MessageType:    domain.MessageTypeText,
		CreatedAt:      time.Now(),
	}
	if in.Text != "" {
		text := in.Text
		msg.Text = &text
	}
	if len(in.Attachments) > 0 {
		msg.MessageType = domain.MessageTypeFile
		for _, a := range in.Attachments {
			msg.Attachments = append(msg.Attachments, domain.Attachment{
				ID:        uuid.New().String(),
				MessageID: msg.ID,
				URL:       a.URL,
				Name:      a.Name,
				MimeType:  a.MimeType,
				FileSize:  a.FileSize,
				Type:      a.Type,
			})
		}
	}

	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, err
	}

	view, err := s.repo.GetMessageView(msg.ID)
	if err != nil {
		return nil, err
	}

	// The message is committed at this point; a lost broadcast must not
	// fail the send.
	if s.bus != nil {
		event := events.MessageCreatedEvent{
			ConversationID: in.ConversationID,
			SenderConnID:   in.SenderConnID,
			Message:        *view,
		}
		if err := events.MessageCreatedV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("failed to publish MessageCreated event",
				"conversationID", in.ConversationID, "error", err)
		}
	}

	return view, nil
}

// ListMessages returns one page of conversation history for a participant,
// oldest first within the page.
func (s *Service) ListMessages(_ context.Context, conversationID, userID, cursor string, limit int) (*MessagePage, error) {
	ok, err := s.repo.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	messages, err := s.repo.ListMessages(conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}

	page := &MessagePage{Messages: make([]*domain.MessageView, 0, len(messages))}
	if len(messages) == limit {
		page.NextCursor = messages[len(messages)-1].ID
	}
	// Newest-first from the repository; the client renders oldest first.
	for i := len(messages) - 1; i >= 0; i-- {
		page.Messages = append(page.Messages, messages[i].View())
	}
	return page, nil
}

// IsParticipant reports whether the user is a member of the conversation.
// The room router uses this as the join-time capability check.
func (s *Service) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	return s.repo.IsParticipant(conversationID, userID)
}

// ParticipantIDs returns the member ids of a conversation.
func (s *Service) ParticipantIDs(_ context.Context, conversationID string) ([]string, error) {
	return s.repo.ParticipantIDs(conversationID)
}

// GetConversation returns a conversation shaped for the requesting user:
// groups keep their full participant list, DMs are flattened to a single
// recipient.
func (s *Service) GetConversation(_ context.Context, conversationID, userID string) (map[string]any, error) {
	conv, err := s.repo.ConversationByID(conversationID)
	if err != nil {
		return nil, err
	}

	if conv.IsGroup {
		return map[string]any{
			"id":           conv.ID,
			"isGroup":      true,
			"title":        conv.Title,
			"avatarUrl":    conv.AvatarURL,
			"participants": conv.Participants,
		}, nil
	}

	var recipient *domain.User
	for i := range conv.Participants {
		if conv.Participants[i].UserID != userID {
			recipient = conv.Participants[i].User
			break
		}
	}
	return map[string]any{
		"id":        conv.ID,
		"isGroup":   false,
		"recipient": recipient,
	}, nil
}

// ListConversations returns the sidebar listing: groups plus DMs with
// friends, sorted by last activity.
func (s *Service) ListConversations(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	convs, err := s.repo.ListConversationsForUser(userID)
	if err != nil {
		return nil, err
	}
	friendIDs, err := s.repo.FriendIDSet(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		summary := domain.ConversationSummary{
			ID:            conv.ID,
			IsGroup:       conv.IsGroup,
			LastMessage:   s.repo.LastMessageText(conv),
			LastMessageAt: conv.LastMessageAt,
		}

		if conv.IsGroup {
			summary.Name = conv.Title
			if summary.Name == "" {
				summary.Name = "Group Chat"
			}
			summary.Avatar = conv.AvatarURL
			for _, p := range conv.Participants {
				if p.UserID != userID && p.User != nil && p.User.IsOnline {
					summary.IsOnline = true
					break
				}
			}
		} else {
			var other *domain.ConversationParticipant
			for j := range conv.Participants {
				if conv.Participants[j].UserID != userID {
					other = &conv.Participants[j]
					break
				}
			}
			// DMs only show up once the other side is a friend.
			if other == nil || !friendIDs[other.UserID] {
				continue
			}
			summary.UserID = other.UserID
			if other.User != nil {
				summary.Name = other.User.Username
				summary.Avatar = other.User.AvatarURL
				summary.IsOnline = other.User.IsOnline
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateGroup creates a group conversation with the creator as owner.
func (s *Service) CreateGroup(_ context.Context, creatorID, title string, participantIDs []string) (*domain.Conversation, error) {
	if title == "" || len(title) > MaxTitleLength {
		return nil, ErrGroupTitleRequired
	}

	members := []string{creatorID}
	for _, id := range participantIDs {
		if id != creatorID {
			members = append(members, id)
		}
	}
	if len(members) < MinGroupMembers {
		return nil, ErrGroupTooSmall
	}

	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		IsGroup:   true,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
	participants := make([]domain.ConversationParticipant, 0, len(members))
	for _, id := range members {
		role := domain.RoleMember
		if id == creatorID {
			role = domain.RoleOwner
		}
		participants = append(participants, domain.ConversationParticipant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           role,
		})
	}

	if err := s.repo.CreateConversation(conv, participants); err != nil {
		return nil, err
	}
	return s.repo.ConversationByID(conv.ID)
}

// SendFriendRequest creates a pending friendship unless a relationship
// already exists in either direction.
func (s *Service) SendFriendRequest(_ context.Context, requesterID, addresseeID string) (*domain.Friendship, error) {
	if addresseeID == "" {
		return nil, fmt.Errorf("recipient id is required")
	}
	if requesterID == addresseeID {
		return nil, ErrSelfFriendRequest
	}

	existing, err := s.repo.FindRelationship(requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case domain.FriendshipAccepted:
			return nil, ErrAlreadyFriends
		case domain.FriendshipPending:
			return nil, ErrRequestPending
		}
	}

	return s.repo.CreateFriendRequest(requesterID, addresseeID)
}

// AcceptFriendRequest accepts a pending request addressed to the current
// user and returns the new DM conversation created alongside it.
func (s *Service) AcceptFriendRequest(_ context.Context, requesterID, currentUserID string) (*domain.Friendship, *domain.Conversation, error) {
	return s.repo.AcceptFriendRequest(requesterID, currentUserID)
}

// RemoveFriendship removes the friendship between two users.
func (s *Service) RemoveFriendship(_ context.Context, userID, friendID string) error {
	return s.repo.RemoveFriendship(userID, friendID)
}

// ListFriendships returns the user's friendships grouped by state.
func (s *Service) ListFriendships(_ context.Context, userID string) (*FriendshipList, error) {
	return s.repo.ListFriendships(userID)
}
