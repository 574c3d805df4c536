package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(NewRepository(db)), db
}

func TestService_SendMessage(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	conv := seedConversation(t, db, alice.ID, bob.ID)

	t.Run("persists and hydrates", func(t *testing.T) {
		view, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Text:           "hello bob",
		})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if view.Text == nil || *view.Text != "hello bob" {
			t.Error("expected message text on the returned view")
		}
		if view.Sender.Username != "alice" {
			t.Error("expected hydrated sender display fields")
		}
		if view.MessageType != domain.MessageTypeText {
			t.Errorf("expected TEXT message, got %q", view.MessageType)
		}
	})

	t.Run("attachments flip the message type", func(t *testing.T) {
		view, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Attachments: []AttachmentInput{{
				URL:      "https://cdn.example.com/pic.png",
				Name:     "pic.png",
				MimeType: "image/png",
				FileSize: 2048,
				Type:     domain.AttachmentImage,
			}},
		})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if view.MessageType != domain.MessageTypeFile {
			t.Errorf("expected FILE message, got %q", view.MessageType)
		}
		if len(view.Attachments) != 1 {
			t.Fatalf("expected 1 attachment, got %d", len(view.Attachments))
		}
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
		})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("expected ErrEmptyMessage, got %v", err)
		}
	})

	t.Run("oversized text rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Text:           strings.Repeat("a", MaxTextLength+1),
		})
		if !errors.Is(err, ErrTextTooLong) {
			t.Errorf("expected ErrTextTooLong, got %v", err)
		}
	})

	t.Run("malformed conversation id rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: "not-a-uuid",
			SenderID:       alice.ID,
			Text:           "hi",
		})
		if !errors.Is(err, ErrInvalidConversationID) {
			t.Errorf("expected ErrInvalidConversationID, got %v", err)
		}
	})

	t.Run("non-participant rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       carol.ID,
			Text:           "let me in",
		})
		if !errors.Is(err, ErrNotParticipant) {
			t.Errorf("expected ErrNotParticipant, got %v", err)
		}
	})

	t.Run("attachment without url rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Attachments:    []AttachmentInput{{Name: "x", MimeType: "image/png", FileSize: 1, Type: domain.AttachmentImage}},
		})
		if !errors.Is(err, ErrInvalidAttachment) {
			t.Errorf("expected ErrInvalidAttachment, got %v", err)
		}
	})

	t.Run("unknown attachment type rejected", func(t *testing.T) {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Attachments: []AttachmentInput{{
				URL: "https://cdn.example.com/x", Name: "x", MimeType: "image/png", FileSize: 1, Type: "GIF",
			}},
		})
		if !errors.Is(err, ErrAttachmentType) {
			t.Errorf("expected ErrAttachmentType, got %v", err)
		}
	})
}

func TestService_ListMessages(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	conv := seedConversation(t, db, alice.ID, bob.ID)

	for i := 0; i < 5; i++ {
		_, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			Text:           "message",
		})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
	}

	t.Run("page is oldest first with cursor", func(t *testing.T) {
		page, err := service.ListMessages(ctx, conv.ID, bob.ID, "", 3)
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(page.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(page.Messages))
		}
		if page.NextCursor == "" {
			t.Error("expected a cursor when a full page is returned")
		}
		if !page.Messages[0].CreatedAt.Before(page.Messages[2].CreatedAt) &&
			!page.Messages[0].CreatedAt.Equal(page.Messages[2].CreatedAt) {
			t.Error("expected messages ordered oldest first within the page")
		}

		older, err := service.ListMessages(ctx, conv.ID, bob.ID, page.NextCursor, 3)
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(older.Messages) != 2 {
			t.Errorf("expected 2 remaining messages, got %d", len(older.Messages))
		}
		if older.NextCursor != "" {
			t.Error("expected no cursor on a short page")
		}
	})

	t.Run("non-participant rejected", func(t *testing.T) {
		if _, err := service.ListMessages(ctx, conv.ID, carol.ID, "", 10); !errors.Is(err, ErrNotParticipant) {
			t.Errorf("expected ErrNotParticipant, got %v", err)
		}
	})
}

func TestService_CreateGroup(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	t.Run("creator becomes owner", func(t *testing.T) {
		conv, err := service.CreateGroup(ctx, alice.ID, "weekend plans", []string{bob.ID, carol.ID})
		if err != nil {
			t.Fatalf("CreateGroup() error = %v", err)
		}
		if !conv.IsGroup || conv.Title != "weekend plans" {
			t.Error("expected a titled group conversation")
		}
		if len(conv.Participants) != 3 {
			t.Fatalf("expected 3 participants, got %d", len(conv.Participants))
		}
		for _, p := range conv.Participants {
			if p.UserID == alice.ID && p.Role != domain.RoleOwner {
				t.Error("expected creator to have the owner role")
			}
		}
	})

	t.Run("title required", func(t *testing.T) {
		if _, err := service.CreateGroup(ctx, alice.ID, "", []string{bob.ID, carol.ID}); !errors.Is(err, ErrGroupTitleRequired) {
			t.Errorf("expected ErrGroupTitleRequired, got %v", err)
		}
	})

	t.Run("too few members", func(t *testing.T) {
		if _, err := service.CreateGroup(ctx, alice.ID, "tiny", []string{bob.ID}); !errors.Is(err, ErrGroupTooSmall) {
			t.Errorf("expected ErrGroupTooSmall, got %v", err)
		}
	})

	t.Run("creator duplicated in member list", func(t *testing.T) {
		if _, err := service.CreateGroup(ctx, alice.ID, "dupes", []string{alice.ID, bob.ID}); !errors.Is(err, ErrGroupTooSmall) {
			t.Errorf("expected ErrGroupTooSmall, got %v", err)
		}
	})
}

func TestService_FriendRequests(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	t.Run("self request rejected", func(t *testing.T) {
		if _, err := service.SendFriendRequest(ctx, alice.ID, alice.ID); !errors.Is(err, ErrSelfFriendRequest) {
			t.Errorf("expected ErrSelfFriendRequest, got %v", err)
		}
	})

	if _, err := service.SendFriendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("SendFriendRequest() error = %v", err)
	}

	t.Run("duplicate request rejected", func(t *testing.T) {
		if _, err := service.SendFriendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, ErrRequestPending) {
			t.Errorf("expected ErrRequestPending, got %v", err)
		}
	})

	t.Run("reverse request also rejected while pending", func(t *testing.T) {
		if _, err := service.SendFriendRequest(ctx, bob.ID, alice.ID); !errors.Is(err, ErrRequestPending) {
			t.Errorf("expected ErrRequestPending, got %v", err)
		}
	})

	t.Run("listing shows direction", func(t *testing.T) {
		aliceList, err := service.ListFriendships(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListFriendships() error = %v", err)
		}
		if len(aliceList.OutgoingRequests) != 1 || len(aliceList.IncomingRequests) != 0 {
			t.Error("expected one outgoing request for alice")
		}

		bobList, err := service.ListFriendships(ctx, bob.ID)
		if err != nil {
			t.Fatalf("ListFriendships() error = %v", err)
		}
		if len(bobList.IncomingRequests) != 1 {
			t.Error("expected one incoming request for bob")
		}
	})

	t.Run("accepting makes friends", func(t *testing.T) {
		_, conv, err := service.AcceptFriendRequest(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("AcceptFriendRequest() error = %v", err)
		}
		if conv == nil {
			t.Fatal("expected a DM conversation")
		}

		if _, err := service.SendFriendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, ErrAlreadyFriends) {
			t.Errorf("expected ErrAlreadyFriends, got %v", err)
		}
	})
}

func TestService_ListConversations(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	// bob is a friend with a DM; carol shares a DM but is not a friend.
	if _, err := service.SendFriendRequest(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("SendFriendRequest() error = %v", err)
	}
	if _, _, err := service.AcceptFriendRequest(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("AcceptFriendRequest() error = %v", err)
	}
	seedConversation(t, db, alice.ID, carol.ID)

	group, err := service.CreateGroup(ctx, alice.ID, "the group", []string{bob.ID, carol.ID})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	summaries, err := service.ListConversations(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations (friend DM + group), got %d", len(summaries))
	}
	var sawGroup, sawDM bool
	for _, s := range summaries {
		switch {
		case s.IsGroup:
			sawGroup = true
			if s.ID != group.ID || s.Name != "the group" {
				t.Error("unexpected group summary")
			}
		default:
			sawDM = true
			if s.UserID != bob.ID || s.Name != "bob" {
				t.Error("expected the DM summary to point at bob")
			}
		}
	}
	if !sawGroup || !sawDM {
		t.Error("expected one group and one DM summary")
	}
}

func TestService_GetConversation(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	dm := seedConversation(t, db, alice.ID, bob.ID)

	shape, err := service.GetConversation(ctx, dm.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if shape["isGroup"] != false {
		t.Error("expected a DM shape")
	}
	recipient, ok := shape["recipient"].(*domain.User)
	if !ok || recipient == nil || recipient.ID != bob.ID {
		t.Error("expected the DM to be flattened to the other participant")
	}

	t.Run("unknown conversation", func(t *testing.T) {
		if _, err := service.GetConversation(ctx, uuid.New().String(), alice.ID); !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("expected ErrConversationNotFound, got %v", err)
		}
	})
}
