package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-auth/internal/domain"
)

const usersPath = "users/"

// UserRepository define el contrato de persistencia para usuarios confirmados.
type UserRepository interface {
	// Create falla con ErrExists si ya hay un usuario con esa clave de email.
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

type userDocument struct {
	UID       string `json:"uid,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CreatedAt int64  `json:"createdAt"`
}

// DocUserRepository implementa UserRepository sobre un DocumentStore.
type DocUserRepository struct {
	store DocumentStore
}

func NewDocUserRepository(store DocumentStore) *DocUserRepository {
	return &DocUserRepository{store: store}
}

func userPath(email string) string {
	return usersPath + domain.EmailKey(email)
}

func (r *DocUserRepository) Create(ctx context.Context, user domain.User) error {
	value, err := json.Marshal(userDocument{
		UID:       user.ID,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.store.Create(ctx, userPath(user.Email), value)
	return err
}

func (r *DocUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	doc, err := r.store.Get(ctx, userPath(email))
	if err != nil {
		return domain.User{}, err
	}
	var ud userDocument
	if err := json.Unmarshal(doc.Value, &ud); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return domain.User{
		ID:           ud.UID,
		Email:        ud.Email,
		PasswordHash: ud.Password,
		CreatedAt:    time.UnixMilli(ud.CreatedAt).UTC(),
	}, nil
}

// UpdatePassword sobrescribe solo el hash; el resto del documento se conserva.
func (r *DocUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	path := userPath(email)
	doc, err := r.store.Get(ctx, path)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc.Value, &fields); err != nil {
		return fmt.Errorf("unmarshal user: %w", err)
	}
	hash, err := json.Marshal(passwordHash)
	if err != nil {
		return err
	}
	fields["password"] = hash
	value, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.store.CompareAndSwap(ctx, path, doc.Version, value)
	return err
}
