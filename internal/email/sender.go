package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-auth/internal/domain"
)

// CodeMessage describe un correo con un codigo de verificacion o de reset.
type CodeMessage struct {
	To        string
	Code      string
	Purpose   domain.Purpose
	Resend    bool
	ExpiresAt time.Time
}

// Sender define la interfaz para envio de codigos por correo.
type Sender interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendCode(_ context.Context, _ CodeMessage) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// Render arma asunto y cuerpo en texto plano para msg.
func Render(msg CodeMessage) (subject, body string) {
	ttl := fmt.Sprintf("%d minutes", int(domain.CodeTTL.Minutes()))
	if msg.Purpose == domain.PurposeReset {
		if msg.Resend {
			return "Your New Password Reset Code",
				fmt.Sprintf("Your new password reset code is: %s\n\nIt will expire in %s.", msg.Code, ttl)
		}
		return "Password Reset Code",
			fmt.Sprintf("Your password reset code is: %s\n\nThis code will expire in %s.", msg.Code, ttl)
	}
	if msg.Resend {
		return "Your New Verification Code",
			fmt.Sprintf("Your new verification code is: %s\n\nIt will expire in %s.", msg.Code, ttl)
	}
	return "Your Verification Code",
		fmt.Sprintf("Your verification code is: %s\n\nIt will expire in %s.", msg.Code, ttl)
}
