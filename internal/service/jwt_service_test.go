package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-auth/internal/domain"
)

func decodeHS256(t *testing.T, token, secret string) (Claims, error) {
	t.Helper()
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return claims, err
}

func TestJWTService_IssueToken(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute)
	now := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { return now }
	user := domain.User{
		ID:        "u1",
		Email:     "user@example.com",
		CreatedAt: now,
	}

	token, err := svc.IssueToken(context.Background(), user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	claims, err := decodeHS256(t, token, "secret")
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != tokenTypeAccess || claims.Issuer != "quiz-auth" {
		t.Fatalf("unexpected typ/iss: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected exp now+15m, got %s", claims.ExpiresAt.Time)
	}
}

func TestJWTService_FallsBackToEmailKeySubject(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)

	token, err := svc.IssueToken(context.Background(), domain.User{Email: "a.b@x.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := decodeHS256(t, token, "secret")
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if claims.UserID != "a,b@x,com" || claims.Subject != "a,b@x,com" {
		t.Fatalf("expected email key as uid, got %q", claims.UserID)
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", 15*time.Minute)
	user := domain.User{ID: "u1", Email: "user@example.com", CreatedAt: time.Now().UTC()}

	if _, err := svc.IssueToken(context.Background(), user); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_DefaultsTTL(t *testing.T) {
	svc := NewJWTService("secret", 0)
	if svc.accessTTL != time.Hour {
		t.Fatalf("expected default ttl 1h, got %s", svc.accessTTL)
	}
}

func TestJWTService_SignedWithConfiguredSecret(t *testing.T) {
	svc := NewJWTService("one", time.Minute)

	token, err := svc.IssueToken(context.Background(), domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := decodeHS256(t, token, "two"); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature mismatch with another secret, got %v", err)
	}
}
