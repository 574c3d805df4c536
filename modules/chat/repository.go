package chat

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// Repository provides conversation and message persistence using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateMessage persists a message, its attachments and the parent
// conversation's last-message pointer in a single transaction. Either all
// of it commits or none of it is visible to readers.
func (r *Repository) CreateMessage(msg *domain.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		result := tx.Model(&domain.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]any{
				"last_message_id": msg.ID,
				"last_message_at": msg.CreatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update conversation pointer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

// GetMessageView loads a message hydrated with sender display fields and
// attachment records.
func (r *Repository) GetMessageView(id string) (*domain.MessageView, error) {
	var msg domain.Message
	err := r.db.Preload("Sender").Preload("Attachments").
		First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("message %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return msg.View(), nil
}

// ListMessages returns up to limit messages of a conversation, newest
// first, starting strictly after the cursor message when one is given.
func (r *Repository) ListMessages(conversationID, cursor string, limit int) ([]domain.Message, error) {
	q := r.db.Preload("Sender").Preload("Attachments").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != "" {
		var anchor domain.Message
		if err := r.db.First(&anchor, "id = ?", cursor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("cursor message not found")
			}
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	var messages []domain.Message
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ConversationByID loads a conversation with its participants and their
// user records.
func (r *Repository) ConversationByID(id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.Preload("Participants.User").First(&conv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &conv, nil
}

// IsParticipant reports whether the user belongs to the conversation.
func (r *Repository) IsParticipant(conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}

// ParticipantIDs returns the user ids of all conversation members.
func (r *Repository) ParticipantIDs(conversationID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	return ids, nil
}

// CreateConversation persists a conversation and its participant rows in
// one transaction.
func (r *Repository) CreateConversation(conv *domain.Conversation, participants []domain.ConversationParticipant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("failed to create participants: %w", err)
		}
		return nil
	})
}

// FindDM returns the existing 1-to-1 conversation between two users, or
// nil when none exists.
func (r *Repository) FindDM(userA, userB string) (*domain.Conversation, error) {
	var ids []string
	err := r.db.Model(&domain.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id IN ?", []string{userA, userB}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2").
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find dm: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var conv domain.Conversation
	err = r.db.Where("id IN ? AND is_group = ?", ids, false).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load dm: %w", err)
	}
	return &conv, nil
}

// ListConversationsForUser returns every conversation the user belongs to,
// participants and users preloaded, most recently active first.
func (r *Repository) ListConversationsForUser(userID string) ([]domain.Conversation, error) {
	var ids []string
	err := r.db.Model(&domain.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var convs []domain.Conversation
	err = r.db.Preload("Participants.User").
		Where("id IN ?", ids).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// LastMessageText returns the text preview for a conversation's last
// message, or the empty string when there is none.
func (r *Repository) LastMessageText(conv *domain.Conversation) string {
	if conv.LastMessageID == nil {
		return ""
	}
	var msg domain.Message
	if err := r.db.First(&msg, "id = ?", *conv.LastMessageID).Error; err != nil {
		return ""
	}
	if msg.Text == nil {
		return ""
	}
	return *msg.Text
}
