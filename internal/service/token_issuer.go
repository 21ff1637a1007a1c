package service

import (
	"context"

	"quiz-auth/internal/domain"
)

// TokenIssuer emite la credencial que recibe el cliente tras un login exitoso.
type TokenIssuer interface {
	IssueToken(ctx context.Context, user domain.User) (string, error)
}
