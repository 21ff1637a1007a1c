package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-auth/internal/domain"
)

// CodeRepository guarda a lo sumo un codigo pendiente por (proposito, email).
type CodeRepository interface {
	Get(ctx context.Context, purpose domain.Purpose, email string) (domain.CodeRecord, error)
	// Put sobrescribe cualquier registro previo.
	Put(ctx context.Context, rec domain.CodeRecord) (domain.CodeRecord, error)
	// Replace escribe solo si rec.Version sigue siendo la version almacenada.
	Replace(ctx context.Context, rec domain.CodeRecord) (domain.CodeRecord, error)
	// Consume borra solo si rec.Version sigue siendo la version almacenada.
	Consume(ctx context.Context, rec domain.CodeRecord) error
}

var codePaths = map[domain.Purpose]string{
	domain.PurposeSignup: "pending/",
	domain.PurposeVerify: "verifications/",
	domain.PurposeReset:  "password_resets/",
}

// codeDocument mantiene los nombres de campo del layout existente:
// el codigo de reset vive en resetCode, el resto en verificationCode.
type codeDocument struct {
	Email            string `json:"email"`
	Password         string `json:"password,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
	ResetCode        string `json:"resetCode,omitempty"`
	ExpiresAt        int64  `json:"expiresAt"`
}

// DocCodeRepository implementa CodeRepository sobre un DocumentStore.
type DocCodeRepository struct {
	store DocumentStore
}

func NewDocCodeRepository(store DocumentStore) *DocCodeRepository {
	return &DocCodeRepository{store: store}
}

func codePath(purpose domain.Purpose, email string) (string, error) {
	prefix, ok := codePaths[purpose]
	if !ok {
		return "", fmt.Errorf("unknown code purpose %q", purpose)
	}
	return prefix + domain.EmailKey(email), nil
}

func (r *DocCodeRepository) Get(ctx context.Context, purpose domain.Purpose, email string) (domain.CodeRecord, error) {
	path, err := codePath(purpose, email)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	doc, err := r.store.Get(ctx, path)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	var cd codeDocument
	if err := json.Unmarshal(doc.Value, &cd); err != nil {
		return domain.CodeRecord{}, fmt.Errorf("unmarshal code record: %w", err)
	}
	rec := domain.CodeRecord{
		Purpose:      purpose,
		Email:        cd.Email,
		PasswordHash: cd.Password,
		Code:         cd.VerificationCode,
		ExpiresAt:    time.UnixMilli(cd.ExpiresAt).UTC(),
		Version:      doc.Version,
	}
	if purpose == domain.PurposeReset {
		rec.Code = cd.ResetCode
	}
	return rec, nil
}

func (r *DocCodeRepository) Put(ctx context.Context, rec domain.CodeRecord) (domain.CodeRecord, error) {
	path, value, err := encodeCode(rec)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	version, err := r.store.Set(ctx, path, value)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	rec.Version = version
	return rec, nil
}

func (r *DocCodeRepository) Replace(ctx context.Context, rec domain.CodeRecord) (domain.CodeRecord, error) {
	path, value, err := encodeCode(rec)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	version, err := r.store.CompareAndSwap(ctx, path, rec.Version, value)
	if err != nil {
		return domain.CodeRecord{}, err
	}
	rec.Version = version
	return rec, nil
}

func (r *DocCodeRepository) Consume(ctx context.Context, rec domain.CodeRecord) error {
	path, err := codePath(rec.Purpose, rec.Email)
	if err != nil {
		return err
	}
	return r.store.CompareAndDelete(ctx, path, rec.Version)
}

func encodeCode(rec domain.CodeRecord) (string, []byte, error) {
	path, err := codePath(rec.Purpose, rec.Email)
	if err != nil {
		return "", nil, err
	}
	cd := codeDocument{
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
	}
	switch rec.Purpose {
	case domain.PurposeReset:
		cd.ResetCode = rec.Code
	case domain.PurposeSignup:
		cd.Password = rec.PasswordHash
		cd.VerificationCode = rec.Code
	default:
		cd.VerificationCode = rec.Code
	}
	value, err := json.Marshal(cd)
	if err != nil {
		return "", nil, fmt.Errorf("marshal code record: %w", err)
	}
	return path, value, nil
}
