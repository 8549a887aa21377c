package service

import (
	"errors"
	"testing"
	"time"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return NewAuthService(AuthConfig{
		Username:     "operator",
		PasswordHash: hash,
		SigningKey:   "test-key",
		TokenTTL:     time.Minute,
	})
}

func TestAuth_TokenRoundTrip(t *testing.T) {
	s := newTestAuth(t)

	token, err := s.GenerateToken("operator", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	username, err := s.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if username != "operator" {
		t.Fatalf("expected operator, got %q", username)
	}
}

func TestAuth_WrongCredentials(t *testing.T) {
	s := newTestAuth(t)

	if _, err := s.GenerateToken("operator", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := s.GenerateToken("nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	s := newTestAuth(t)
	if _, err := s.ParseToken("not.a.token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestAuth_WrongSigningKey(t *testing.T) {
	s := newTestAuth(t)
	token, err := s.GenerateToken("operator", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewAuthService(AuthConfig{
		Username:   "operator",
		SigningKey: "different-key",
	})
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected error for token signed with another key")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
