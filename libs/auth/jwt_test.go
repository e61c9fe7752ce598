package auth

import (
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := Claims{
		Sub:  "admin@studio.test",
		Role: RoleAdmin,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(1 * time.Hour).Unix(),
	}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestIssueExpired(t *testing.T) {
	token, err := Issue("admin@studio.test", RoleAdmin, -5*time.Minute, "s")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := ParseAndVerifyHS256("not-a-token", "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueStampsIssuer(t *testing.T) {
	token, err := Issue("admin@studio.test", RoleAdmin, time.Hour, "s")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := ParseAndVerifyHS256(token, "s")
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if claims.Iss != Issuer {
		t.Fatalf("expected issuer %q, got %q", Issuer, claims.Iss)
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := SignHS256(Claims{Sub: "x"}, ""); err == nil {
		t.Fatal("expected signing with an empty secret to fail")
	}
	token, _ := Issue("x", RoleAdmin, time.Hour, "s")
	if _, err := ParseAndVerifyHS256(token, ""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFutureIssuedAtRejected(t *testing.T) {
	token, err := SignHS256(Claims{
		Sub:  "admin@studio.test",
		Role: RoleAdmin,
		Iat:  time.Now().Add(time.Hour).Unix(),
		Exp:  time.Now().Add(2 * time.Hour).Unix(),
	}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
