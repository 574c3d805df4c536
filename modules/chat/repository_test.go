package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Friendship{},
		&domain.UserFriend{},
		&domain.Conversation{},
		&domain.ConversationParticipant{},
		&domain.Message{},
		&domain.Attachment{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func seedConversation(t *testing.T, db *gorm.DB, userIDs ...string) *domain.Conversation {
	t.Helper()
	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		CreatedBy: userIDs[0],
		CreatedAt: time.Now(),
	}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("failed to seed conversation: %v", err)
	}
	for _, id := range userIDs {
		p := &domain.ConversationParticipant{ConversationID: conv.ID, UserID: id}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("failed to seed participant: %v", err)
		}
	}
	return conv
}

func TestRepository_CreateMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv := seedConversation(t, db, alice.ID, bob.ID)

	text := "hello"
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Text:           &text,
		MessageType:    domain.MessageTypeText,
		CreatedAt:      time.Now(),
	}

	if err := repo.CreateMessage(msg); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	t.Run("last message pointer updated in same transaction", func(t *testing.T) {
		var got domain.Conversation
		if err := db.First(&got, "id = ?", conv.ID).Error; err != nil {
			t.Fatalf("failed to reload conversation: %v", err)
		}
		if got.LastMessageID == nil || *got.LastMessageID != msg.ID {
			t.Errorf("expected last message id %q, got %v", msg.ID, got.LastMessageID)
		}
		if got.LastMessageAt == nil {
			t.Error("expected last message timestamp to be set")
		}
	})

	t.Run("missing conversation rolls back the message", func(t *testing.T) {
		orphan := &domain.Message{
			ID:             uuid.New().String(),
			ConversationID: uuid.New().String(),
			SenderID:       alice.ID,
			Text:           &text,
			MessageType:    domain.MessageTypeText,
			CreatedAt:      time.Now(),
		}
		if err := repo.CreateMessage(orphan); !errors.Is(err, ErrConversationNotFound) {
			t.Fatalf("expected ErrConversationNotFound, got %v", err)
		}

		var count int64
		if err := db.Model(&domain.Message{}).Where("id = ?", orphan.ID).Count(&count).Error; err != nil {
			t.Fatalf("failed to count messages: %v", err)
		}
		if count != 0 {
			t.Error("expected no message row after rollback")
		}
	})
}

func TestRepository_CreateMessage_WithAttachments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	conv := seedConversation(t, db, alice.ID)

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		MessageType:    domain.MessageTypeFile,
		CreatedAt:      time.Now(),
		Attachments: []domain.Attachment{{
			ID:        uuid.New().String(),
			URL:       "https://cdn.example.com/pic.png",
			Name:      "pic.png",
			MimeType:  "image/png",
			FileSize:  1024,
			Type:      domain.AttachmentImage,
		}},
	}
	// MessageID is filled by the association on create.
	msg.Attachments[0].MessageID = msg.ID

	if err := repo.CreateMessage(msg); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	view, err := repo.GetMessageView(msg.ID)
	if err != nil {
		t.Fatalf("GetMessageView() error = %v", err)
	}
	if len(view.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(view.Attachments))
	}
	if view.Attachments[0].Type != domain.AttachmentImage {
		t.Errorf("expected attachment type IMAGE, got %q", view.Attachments[0].Type)
	}
	if view.Sender.Username != "alice" {
		t.Error("expected hydrated sender on message view")
	}
}

func TestRepository_ListMessages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	conv := seedConversation(t, db, alice.ID)

	base := time.Now().Add(-time.Hour)
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("message %d", i)
		msg := &domain.Message{
			ID:             uuid.New().String(),
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Text:           &text,
			MessageType:    domain.MessageTypeText,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateMessage(msg); err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
		ids = append(ids, msg.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		messages, err := repo.ListMessages(conv.ID, "", 3)
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(messages))
		}
		if messages[0].ID != ids[4] || messages[2].ID != ids[2] {
			t.Error("expected messages ordered newest first")
		}
	})

	t.Run("cursor continues past the anchor", func(t *testing.T) {
		messages, err := repo.ListMessages(conv.ID, ids[2], 10)
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("expected 2 older messages, got %d", len(messages))
		}
		if messages[0].ID != ids[1] || messages[1].ID != ids[0] {
			t.Error("expected the two messages older than the cursor")
		}
	})

	t.Run("unknown cursor fails", func(t *testing.T) {
		if _, err := repo.ListMessages(conv.ID, uuid.New().String(), 10); err == nil {
			t.Error("expected error for unknown cursor")
		}
	})
}

func TestRepository_FindDM(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	dm := seedConversation(t, db, alice.ID, bob.ID)

	found, err := repo.FindDM(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("FindDM() error = %v", err)
	}
	if found == nil || found.ID != dm.ID {
		t.Errorf("expected to find dm %s", dm.ID)
	}

	missing, err := repo.FindDM(alice.ID, carol.ID)
	if err != nil {
		t.Fatalf("FindDM() error = %v", err)
	}
	if missing != nil {
		t.Error("expected no dm between alice and carol")
	}
}

func TestRepository_AcceptFriendRequest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	if _, err := repo.CreateFriendRequest(alice.ID, bob.ID); err != nil {
		t.Fatalf("CreateFriendRequest() error = %v", err)
	}

	friendship, conv, err := repo.AcceptFriendRequest(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("AcceptFriendRequest() error = %v", err)
	}
	if friendship.Status != domain.FriendshipAccepted {
		t.Errorf("expected status ACCEPTED, got %q", friendship.Status)
	}
	if conv == nil || conv.IsGroup {
		t.Fatal("expected a DM conversation to be created")
	}

	t.Run("lookup rows exist in both directions", func(t *testing.T) {
		for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
			var count int64
			err := db.Model(&domain.UserFriend{}).
				Where("user_id = ? AND friend_id = ?", pair[0], pair[1]).
				Count(&count).Error
			if err != nil {
				t.Fatalf("failed to count lookup rows: %v", err)
			}
			if count != 1 {
				t.Errorf("expected lookup row %s -> %s", pair[0], pair[1])
			}
		}
	})

	t.Run("both users are in the conversation", func(t *testing.T) {
		ids, err := repo.ParticipantIDs(conv.ID)
		if err != nil {
			t.Fatalf("ParticipantIDs() error = %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("expected 2 participants, got %d", len(ids))
		}
	})

	t.Run("accepting again fails", func(t *testing.T) {
		if _, _, err := repo.AcceptFriendRequest(alice.ID, bob.ID); !errors.Is(err, ErrFriendshipNotFound) {
			t.Errorf("expected ErrFriendshipNotFound, got %v", err)
		}
	})
}

func TestRepository_RemoveFriendship(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	if _, err := repo.CreateFriendRequest(alice.ID, bob.ID); err != nil {
		t.Fatalf("CreateFriendRequest() error = %v", err)
	}
	if _, _, err := repo.AcceptFriendRequest(alice.ID, bob.ID); err != nil {
		t.Fatalf("AcceptFriendRequest() error = %v", err)
	}

	if err := repo.RemoveFriendship(bob.ID, alice.ID); err != nil {
		t.Fatalf("RemoveFriendship() error = %v", err)
	}

	rel, err := repo.FindRelationship(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("FindRelationship() error = %v", err)
	}
	if rel != nil {
		t.Error("expected friendship to be deleted")
	}

	set, err := repo.FriendIDSet(alice.ID)
	if err != nil {
		t.Fatalf("FriendIDSet() error = %v", err)
	}
	if set[bob.ID] {
		t.Error("expected lookup rows to be deleted")
	}
}
