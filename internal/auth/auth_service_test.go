package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	token, err := svc.GenerateToken("u1", "admin@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "admin@example.com" || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewService("secret-a", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	verifier, err := NewService("secret-b", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	token, err := issuer.GenerateToken("u1", "user", RoleRecruiter)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, err := NewService("test-secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	token, err := svc.GenerateToken("u1", "user", RoleRecruiter)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService("", time.Hour); err == nil {
		t.Fatal("empty secret accepted")
	}
	if _, err := NewService("secret", 0); err == nil {
		t.Fatal("zero ttl accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in clear")
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Fatal("valid password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("invalid password accepted")
	}
}
