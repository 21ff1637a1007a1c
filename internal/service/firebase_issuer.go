package service

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-auth/internal/domain"
)

const (
	firebaseAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"
	firebaseTokenTTL = time.Hour
)

// serviceAccount recoge los campos usados del JSON de cuenta de servicio.
type serviceAccount struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
}

type firebaseClaims struct {
	UID    string         `json:"uid"`
	Claims map[string]any `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// FirebaseTokenIssuer firma custom tokens RS256 que el cliente canjea en Firebase Auth.
type FirebaseTokenIssuer struct {
	clientEmail string
	keyID       string
	key         *rsa.PrivateKey
	now         func() time.Time
}

func NewFirebaseTokenIssuer(credentials []byte) (*FirebaseTokenIssuer, error) {
	var sa serviceAccount
	if err := json.Unmarshal(credentials, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account requires client_email and private_key")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return &FirebaseTokenIssuer{
		clientEmail: sa.ClientEmail,
		keyID:       sa.PrivateKeyID,
		key:         key,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoadFirebaseTokenIssuer lee el archivo de credenciales desde path.
func LoadFirebaseTokenIssuer(path string) (*FirebaseTokenIssuer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	return NewFirebaseTokenIssuer(raw)
}

func (f *FirebaseTokenIssuer) IssueToken(_ context.Context, user domain.User) (string, error) {
	uid := user.ID
	if uid == "" {
		uid = domain.EmailKey(user.Email)
	}
	now := f.now()
	claims := firebaseClaims{
		UID:    uid,
		Claims: map[string]any{"email": user.Email},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    f.clientEmail,
			Subject:   f.clientEmail,
			Audience:  jwt.ClaimStrings{firebaseAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(firebaseTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if f.keyID != "" {
		token.Header["kid"] = f.keyID
	}
	return token.SignedString(f.key)
}
