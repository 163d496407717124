package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	id := uuid.New()

	token, err := GenerateJWT(id, "u@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token, "secret")
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if claims.UserID != id {
		t.Errorf("UserID mismatch: got %s, want %s", claims.UserID, id)
	}
	if claims.Subject != id.String() {
		t.Errorf("Subject mismatch: got %s, want %s", claims.Subject, id)
	}
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "u@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	if _, err := ValidateJWT(token, "other"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "u@example.com", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	if _, err := ValidateJWT(token, "secret"); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestGenerateJWT_EmptySecret(t *testing.T) {
	if _, err := GenerateJWT(uuid.New(), "u@example.com", "", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
