package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTManager() *JWTManager {
	config := DefaultJWTConfig()
	config.SecretKey = "test-secret"
	return NewJWTManager(config)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := testJWTManager()

	token, err := manager.GenerateAccessToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected user id %q, got %q", "user-1", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username %q, got %q", "alice", claims.Username)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected token type access, got %q", claims.TokenType)
	}
}

func TestJWTManager_TokenTypeMismatch(t *testing.T) {
	manager := testJWTManager()

	refresh, err := manager.GenerateRefreshToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateAccessToken(refresh); err == nil {
		t.Error("expected error validating refresh token as access token")
	}

	access, err := manager.GenerateAccessToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := manager.ValidateRefreshToken(access); err == nil {
		t.Error("expected error validating access token as refresh token")
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	config := DefaultJWTConfig()
	config.SecretKey = "test-secret"
	config.AccessTokenDuration = -time.Minute
	manager := NewJWTManager(config)

	token, err := manager.GenerateAccessToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := testJWTManager().GenerateAccessToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	other := DefaultJWTConfig()
	other.SecretKey = "different-secret"
	if _, err := NewJWTManager(other).ValidateToken(token); err == nil {
		t.Error("expected error validating token signed with another secret")
	}
}
