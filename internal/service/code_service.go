package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-auth/internal/domain"
	"quiz-auth/internal/email"
	"quiz-auth/internal/repository"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// CodeService maneja el ciclo de vida de los codigos: emitir, reemitir y verificar.
type CodeService struct {
	logger  *zap.Logger
	codes   repository.CodeRepository
	users   repository.UserRepository
	sender  email.Sender
	now     func() time.Time
	newCode func() (string, error)
	newID   func() string
}

func NewCodeService(logger *zap.Logger, codes repository.CodeRepository, users repository.UserRepository, sender email.Sender) *CodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeService{
		logger:  logger,
		codes:   codes,
		users:   users,
		sender:  sender,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: generateCode,
		newID:   uuid.NewString,
	}
}

type IssueInput struct {
	Email        string
	Purpose      domain.Purpose
	PasswordHash string
}

// Issue crea un codigo nuevo para el proposito, pisando cualquier registro previo,
// y lo envia por correo.
func (s *CodeService) Issue(ctx context.Context, input IssueInput) error {
	if strings.TrimSpace(input.Email) == "" || !input.Purpose.Valid() {
		return ErrInvalidInput
	}

	if input.Purpose == domain.PurposeSignup {
		_, err := s.users.GetByEmail(ctx, input.Email)
		if err == nil {
			return ErrUserExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	rec := domain.CodeRecord{
		Purpose:      input.Purpose,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Code:         code,
		ExpiresAt:    s.now().Add(domain.CodeTTL),
	}
	if _, err := s.codes.Put(ctx, rec); err != nil {
		return fmt.Errorf("store %s code: %w", input.Purpose, err)
	}
	codeEvents.WithLabelValues(string(input.Purpose), eventIssued).Inc()

	return s.notify(ctx, rec, false)
}

// Reissue rota codigo y expiracion de un registro existente. Nunca crea uno.
func (s *CodeService) Reissue(ctx context.Context, emailAddr string, purpose domain.Purpose) error {
	if strings.TrimSpace(emailAddr) == "" || !purpose.Valid() {
		return ErrInvalidInput
	}

	rec, err := s.codes.Get(ctx, purpose, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("load %s code: %w", purpose, err)
	}

	code, err := s.rotateCode(rec.Code)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	rec.Code = code
	rec.ExpiresAt = s.now().Add(domain.CodeTTL)

	rotated, err := s.codes.Replace(ctx, rec)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrCodeNotFound
		case errors.Is(err, repository.ErrVersionConflict):
			return ErrCodeConflict
		}
		return fmt.Errorf("rotate %s code: %w", purpose, err)
	}
	codeEvents.WithLabelValues(string(purpose), eventReissued).Inc()

	return s.notify(ctx, rotated, true)
}

// Verify comprueba el codigo. Para signup promueve el registro pendiente a
// usuario confirmado; para verify lo consume; para reset lo deja intacto
// hasta que CompleteReset actualice la contraseña.
func (s *CodeService) Verify(ctx context.Context, emailAddr string, purpose domain.Purpose, code string) error {
	rec, err := s.Active(ctx, emailAddr, purpose)
	if err != nil {
		return err
	}
	if rec.Code != code {
		codeEvents.WithLabelValues(string(purpose), eventMismatch).Inc()
		return ErrCodeMismatch
	}

	switch purpose {
	case domain.PurposeReset:
	case domain.PurposeSignup:
		if err := s.Consume(ctx, rec); err != nil {
			return err
		}
		user := domain.User{
			ID:           s.newID(),
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
			CreatedAt:    s.now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrExists) {
				return ErrUserExists
			}
			// se repone el registro reclamado
			if _, putErr := s.codes.Put(ctx, rec); putErr != nil {
				s.logger.Error("restore pending signup failed",
					zap.String("email", rec.Email),
					zap.Error(putErr),
				)
			}
			return fmt.Errorf("create user: %w", err)
		}
	default:
		if err := s.Consume(ctx, rec); err != nil {
			return err
		}
	}

	codeEvents.WithLabelValues(string(purpose), eventVerified).Inc()
	return nil
}

// Active devuelve el registro pendiente si existe y no vencio.
func (s *CodeService) Active(ctx context.Context, emailAddr string, purpose domain.Purpose) (domain.CodeRecord, error) {
	if strings.TrimSpace(emailAddr) == "" || !purpose.Valid() {
		return domain.CodeRecord{}, ErrInvalidInput
	}
	rec, err := s.codes.Get(ctx, purpose, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CodeRecord{}, ErrCodeNotFound
		}
		return domain.CodeRecord{}, fmt.Errorf("load %s code: %w", purpose, err)
	}
	if rec.Expired(s.now()) {
		codeEvents.WithLabelValues(string(purpose), eventExpired).Inc()
		return domain.CodeRecord{}, ErrCodeExpired
	}
	return rec, nil
}

// Consume borra el registro solo si nadie lo consumio o roto desde que se leyo.
func (s *CodeService) Consume(ctx context.Context, rec domain.CodeRecord) error {
	err := s.codes.Consume(ctx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		// el codigo fue rotado entre la lectura y el borrado
		return ErrCodeMismatch
	}
	return fmt.Errorf("consume %s code: %w", rec.Purpose, err)
}

func (s *CodeService) rotateCode(previous string) (string, error) {
	for {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		if code != previous {
			return code, nil
		}
	}
}

func (s *CodeService) notify(ctx context.Context, rec domain.CodeRecord, resend bool) error {
	if s.sender == nil {
		return ErrNotificationFailed
	}
	err := s.sender.SendCode(ctx, email.CodeMessage{
		To:        rec.Email,
		Code:      rec.Code,
		Purpose:   rec.Purpose,
		Resend:    resend,
		ExpiresAt: rec.ExpiresAt,
	})
	if err != nil {
		s.logger.Warn("send code failed",
			zap.Error(err),
			zap.String("email", rec.Email),
			zap.String("purpose", string(rec.Purpose)),
		)
		return ErrNotificationFailed
	}
	return nil
}

// generateCode devuelve un codigo uniforme en [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
