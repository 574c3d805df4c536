package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidUsername is returned when the username is out of bounds.
	ErrInvalidUsername = errors.New("username must be 3-32 characters")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// TokenPair carries access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Service handles registration, login and token validation.
type Service struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewService creates a new auth Service.
func NewService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *Service {
	return &Service{repo: repo, hasher: hasher, jwt: jwt}
}

// Repository exposes the user repository for modules that need status
// writes or profile lookups.
func (s *Service) Repository() *UserRepository { return s.repo }

// Register creates a new user account.
func (s *Service) Register(_ context.Context, username, email, password string) (*domain.User, *TokenPair, error) {
	if len(username) < 3 || len(username) > 32 {
		return nil, nil, ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, nil, ErrPasswordTooLong
	}

	exists, err := s.repo.EmailExists(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, nil, ErrUserExists
	}
	exists, err = s.repo.UsernameExists(username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return nil, nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s *Service) Login(_ context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.repo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshTokens exchanges a valid refresh token for a new token pair.
func (s *Service) RefreshTokens(_ context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.repo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(user)
}

// ValidateToken validates an access token and returns the decoded identity.
func (s *Service) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(userID)
}

func (s *Service) generateTokenPair(user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}
