package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = errors.New("user already exists")
)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(user *domain.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByEmail finds a user by email.
func (r *UserRepository) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// EmailExists checks if a user with the given email exists.
func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UsernameExists checks if a user with the given username exists.
func (r *UserRepository) UsernameExists(username string) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UserRepository) UpdateProfile(userID, username, bio string) (*domain.User, error) {
	result := r.db.Model(&domain.User{}).Where("id = ?", userID).
		Updates(map[string]any{"username": username, "bio": bio})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return r.FindByID(userID)
}

// UpdateAvatar stores the avatar URL returned by the blob-storage service.
func (r *UserRepository) UpdateAvatar(userID, avatarURL string) error {
	result := r.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("avatar_url", avatarURL)
	if result.Error != nil {
		return fmt.Errorf("failed to update avatar: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetOnline marks the user online. LastSeen is deliberately left untouched;
// it only moves when the user goes offline.
func (r *UserRepository) SetOnline(userID string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("is_online", true).Error
}

// SetOffline marks the user offline and records the last-seen timestamp.
func (r *UserRepository) SetOffline(userID string, lastSeen time.Time) error {
	return r.db.Model(&domain.User{}).Where("id = ?", userID).
		Updates(map[string]any{"is_online": false, "last_seen": lastSeen}).Error
}

// Search returns up to limit users other than currentUserID whose username
// contains query, each annotated with the friendship status relative to the
// current user.
func (r *UserRepository) Search(currentUserID, query string, limit int) ([]domain.UserView, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q := r.db.Model(&domain.User{}).Where("id <> ?", currentUserID)
	if query != "" {
		q = q.Where("username LIKE ?", "%"+query+"%")
	}

	var users []domain.User
	if err := q.Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	friendIDs, err := r.friendIDSet(currentUserID)
	if err != nil {
		return nil, err
	}

	var pending []domain.Friendship
	if err := r.db.Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
		domain.FriendshipPending, currentUserID, currentUserID).Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending friendships: %w", err)
	}
	sent := make(map[string]bool)
	received := make(map[string]bool)
	for _, f := range pending {
		if f.RequesterID == currentUserID {
			sent[f.AddresseeID] = true
		} else {
			received[f.RequesterID] = true
		}
	}

	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		status := "NOT_FRIENDS"
		switch {
		case friendIDs[u.ID]:
			status = "FRIENDS"
		case sent[u.ID]:
			status = "PENDING_SENT"
		case received[u.ID]:
			status = "PENDING_RECEIVED"
		}
		views = append(views, domain.UserView{
			ID:               u.ID,
			Username:         u.Username,
			AvatarURL:        u.AvatarURL,
			IsOnline:         u.IsOnline,
			FriendshipStatus: status,
		})
	}
	return views, nil
}

func (r *UserRepository) friendIDSet(userID string) (map[string]bool, error) {
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
