package api

import (
	domain "github.com/Keshujangid/Chat-app/domain/chat"
	"github.com/Keshujangid/Chat-app/modules/auth"
	"github.com/Keshujangid/Chat-app/modules/chat"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse carries a user together with a fresh token pair.
type AuthResponse struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// UpdateProfileRequest is the request body for profile updates.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

// CreateGroupRequest is the request body for group creation.
type CreateGroupRequest struct {
	Title          string   `json:"title"`
	ParticipantIDs []string `json:"participantIds"`
}

// SendMessageRequest is the REST fallback body for sending a message.
type SendMessageRequest struct {
	Text        string                 `json:"text"`
	Attachments []chat.AttachmentInput `json:"attachments"`
}

// FriendRequestBody addresses a friend request.
type FriendRequestBody struct {
	AddresseeID string `json:"addresseeId"`
}

// ErrorResponse is the error response body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
