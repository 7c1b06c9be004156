package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return NewService(jwtConfig)
}

func TestPrincipal_FromIssuedToken(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.IssueToken(" alice ", "Alice", 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	p, err := svc.Principal(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if !p.Authenticated || p.UserID != "alice" || p.Username != "Alice" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestPrincipal_NameFallsBackToSubject(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.IssueToken("bob", "", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	p, err := svc.Principal(token)
	if err != nil {
		t.Fatalf("principal: %v", err)
	}
	if p.DisplayName() != "bob" || p.Username != "bob" {
		t.Fatalf("expected subject as name, got %+v", p)
	}
}

func TestPrincipal_MissingToken(t *testing.T) {
	svc := newTestAuthService(t)

	p, err := svc.Principal("")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if p.Authenticated {
		t.Fatalf("principal must not be authenticated")
	}
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc := newTestAuthService(t)
	other := NewService(&JWTConfig{Secret: []byte("other"), Issuer: "test", Audience: "test", TTL: time.Hour})

	token, err := other.IssueToken("alice", "", 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateToken_RejectsIssuerAndAudienceMismatch(t *testing.T) {
	svc := newTestAuthService(t)

	wrongIssuer := &JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "elsewhere", Audience: "test", TTL: time.Hour}
	token, err := GenerateToken(wrongIssuer, "alice", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	wrongAudience := &JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "test", Audience: "mobile", TTL: time.Hour}
	token, err = GenerateToken(wrongAudience, "alice", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("expected audience mismatch")
	}
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	svc := newTestAuthService(t)

	expired := &JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "test", Audience: "test", TTL: -time.Minute}
	token, err := GenerateToken(expired, "alice", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = svc.ValidateToken(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestAuthService(t)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "test",
		Audience:  jwt.ClaimStrings{"test"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("expected alg none to be rejected")
	}
}

func TestIssueToken_RequiresSubject(t *testing.T) {
	svc := newTestAuthService(t)
	if _, err := svc.IssueToken("   ", "x", 0); err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("expected empty subject error, got %v", err)
	}
}
