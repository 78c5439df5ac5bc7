package utils

import (
	"testing"
	"time"
)

func TestGenerateAndParseJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateJWT("42", "ADMIN", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "42" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "one")
	token, err := GenerateJWT("1", "ANALYST", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Setenv("JWT_SECRET", "two")
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := GenerateJWT("1", "ANALYST", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("expected expiry error")
	}
}
