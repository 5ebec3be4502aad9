package utils

import (
	"testing"
)

func TestHashPassword(t *testing.T) {
	password := "secret"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !CheckPassword(password, hash) {
		t.Errorf("Expected password check to pass")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Errorf("Expected password check to fail")
	}
}

func TestJWT(t *testing.T) {
	secret := "supersecret"

	token, err := GenerateToken("123", "member", "7", secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.UserID != "123" {
		t.Errorf("Expected user id 123, got %q", claims.UserID)
	}
	if claims.Role != "member" {
		t.Errorf("Expected role member, got %q", claims.Role)
	}
	if claims.GymID != "7" {
		t.Errorf("Expected gym id 7, got %q", claims.GymID)
	}

	if _, err := ValidateToken(token, "othersecret"); err == nil {
		t.Errorf("Expected validation to fail with wrong secret")
	}
}
