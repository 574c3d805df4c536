package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// FindRelationship returns the friendship between two users in either
// direction, or nil when none exists.
func (r *Repository) FindRelationship(userA, userB string) (*domain.Friendship, error) {
	var f domain.Friendship
	err := r.db.Where(
		"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		userA, userB, userB, userA,
	).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find relationship: %w", err)
	}
	return &f, nil
}

// CreateFriendRequest inserts a new pending friendship row.
func (r *Repository) CreateFriendRequest(requesterID, addresseeID string) (*domain.Friendship, error) {
	f := &domain.Friendship{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      domain.FriendshipPending,
	}
	if err := r.db.Create(f).Error; err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return f, nil
}

// AcceptFriendRequest flips the pending request to ACCEPTED, writes the
// bidirectional UserFriend lookup rows and creates the DM conversation for
// the new friends, all in one transaction.
func (r *Repository) AcceptFriendRequest(requesterID, addresseeID string) (*domain.Friendship, *domain.Conversation, error) {
	var friendship domain.Friendship
	var conv *domain.Conversation

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("requester_id = ? AND addressee_id = ? AND status = ?",
			requesterID, addresseeID, domain.FriendshipPending).
			First(&friendship).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendshipNotFound
			}
			return fmt.Errorf("failed to load friend request: %w", err)
		}

		friendship.Status = domain.FriendshipAccepted
		friendship.UpdatedAt = time.Now()
		if err := tx.Save(&friendship).Error; err != nil {
			return fmt.Errorf("failed to accept friend request: %w", err)
		}

		rows := []domain.UserFriend{
			{UserID: requesterID, FriendID: addresseeID},
			{UserID: addresseeID, FriendID: requesterID},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to create friend lookup rows: %w", err)
		}

		// Accepting a request also opens the DM between the two users.
		conv = &domain.Conversation{
			ID:        uuid.New().String(),
			IsGroup:   false,
			CreatedBy: addresseeID,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(conv).Error; err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		participants := []domain.ConversationParticipant{
			{ConversationID: conv.ID, UserID: requesterID},
			{ConversationID: conv.ID, UserID: addresseeID},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("failed to create participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &friendship, conv, nil
}

// RemoveFriendship deletes the friendship and its lookup rows in both
// directions.
func (r *Repository) RemoveFriendship(userA, userB string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(
			"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA,
		).Delete(&domain.Friendship{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete friendship: %w", err)
		}
		err = tx.Where(
			"(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userA, userB, userB, userA,
		).Delete(&domain.UserFriend{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete friend lookup rows: %w", err)
		}
		return nil
	})
}

// ListFriendships returns all friendships involving the user, with both
// sides' display fields preloaded, grouped for the client.
func (r *Repository) ListFriendships(userID string) (*FriendshipList, error) {
	var friendships []domain.Friendship
	err := r.db.Preload("Requester").Preload("Addressee").
		Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Find(&friendships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}

	list := &FriendshipList{
		Accepted:         []domain.Friendship{},
		IncomingRequests: []domain.Friendship{},
		OutgoingRequests: []domain.Friendship{},
	}
	for _, f := range friendships {
		switch {
		case f.Status == domain.FriendshipAccepted:
			list.Accepted = append(list.Accepted, f)
		case f.Status == domain.FriendshipPending && f.AddresseeID == userID:
			list.IncomingRequests = append(list.IncomingRequests, f)
		case f.Status == domain.FriendshipPending && f.RequesterID == userID:
			list.OutgoingRequests = append(list.OutgoingRequests, f)
		}
	}
	return list, nil
}

// FriendIDSet returns the set of user ids the given user is friends with.
func (r *Repository) FriendIDSet(userID string) (map[string]bool, error) {
	var rows []domain.UserFriend
	if err := r.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		set[row.FriendID] = true
	}
	return set, nil
}
