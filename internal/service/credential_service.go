package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"quiz-auth/internal/domain"
	"quiz-auth/internal/repository"
)

// CredentialService coordina registro, login y reset de contraseña.
type CredentialService struct {
	logger *zap.Logger
	users  repository.UserRepository
	codes  *CodeService
	hasher PasswordHasher
	tokens TokenIssuer
}

// NewCredentialService arma el servicio. tokens puede ser nil: el login
// devuelve entonces un token vacio.
func NewCredentialService(logger *zap.Logger, users repository.UserRepository, codes *CodeService, hasher PasswordHasher, tokens TokenIssuer) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &CredentialService{
		logger: logger,
		users:  users,
		codes:  codes,
		hasher: hasher,
		tokens: tokens,
	}
}

type LoginResult struct {
	User  domain.User
	Token string
}

// Register deja un alta pendiente y envia el codigo de verificacion.
// Un segundo Register antes de verificar reemplaza al anterior.
func (s *CredentialService) Register(ctx context.Context, emailAddr, password string) error {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return ErrInvalidInput
	}
	if err := s.ensureNoUser(ctx, emailAddr); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.codes.Issue(ctx, IssueInput{
		Email:        emailAddr,
		Purpose:      domain.PurposeSignup,
		PasswordHash: hash,
	})
}

func (s *CredentialService) Authenticate(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return LoginResult{}, ErrInvalidInput
	}
	user, err := s.lookupUser(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			loginAttempts.WithLabelValues("unknown_user").Inc()
		}
		return LoginResult{}, err
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		loginAttempts.WithLabelValues("invalid_password").Inc()
		return LoginResult{}, ErrInvalidCredentials
	}

	result := LoginResult{User: user}
	if s.tokens != nil {
		token, err := s.tokens.IssueToken(ctx, user)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue token: %w", err)
		}
		result.Token = token
	}
	loginAttempts.WithLabelValues("success").Inc()
	return result, nil
}

func (s *CredentialService) BeginReset(ctx context.Context, emailAddr string) error {
	if strings.TrimSpace(emailAddr) == "" {
		return ErrInvalidInput
	}
	if _, err := s.lookupUser(ctx, emailAddr); err != nil {
		return err
	}
	return s.codes.Issue(ctx, IssueInput{Email: emailAddr, Purpose: domain.PurposeReset})
}

// CompleteReset exige un codigo de reset vigente, cambia el hash y consume el registro.
func (s *CredentialService) CompleteReset(ctx context.Context, emailAddr, password string) error {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return ErrInvalidInput
	}
	rec, err := s.codes.Active(ctx, emailAddr, domain.PurposeReset)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, emailAddr, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrCodeConflict
		}
		return fmt.Errorf("update password: %w", err)
	}

	// la contraseña ya cambio; perder la carrera del borrado no invalida el reset
	if err := s.codes.Consume(ctx, rec); err != nil {
		if errors.Is(err, ErrCodeNotFound) || errors.Is(err, ErrCodeMismatch) {
			s.logger.Warn("reset code already consumed", zap.String("email", emailAddr), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// RequestVerification envia un codigo de verificacion a un usuario ya confirmado.
func (s *CredentialService) RequestVerification(ctx context.Context, emailAddr string) error {
	if strings.TrimSpace(emailAddr) == "" {
		return ErrInvalidInput
	}
	if _, err := s.lookupUser(ctx, emailAddr); err != nil {
		return err
	}
	return s.codes.Issue(ctx, IssueInput{Email: emailAddr, Purpose: domain.PurposeVerify})
}

func (s *CredentialService) lookupUser(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *CredentialService) ensureNoUser(ctx context.Context, emailAddr string) error {
	_, err := s.lookupUser(ctx, emailAddr)
	switch {
	case err == nil:
		return ErrUserExists
	case errors.Is(err, ErrUserNotFound):
		return nil
	}
	return err
}
