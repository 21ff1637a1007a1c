package domain

import (
	"strings"
	"time"
)

// Purpose identifica la categoria logica de un codigo pendiente.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

// CodeTTL es la ventana de validez de cualquier codigo emitido o reemitido.
const CodeTTL = 10 * time.Minute

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeVerify, PurposeReset:
		return true
	}
	return false
}

// CodeRecord es un codigo pendiente para (email, proposito).
type CodeRecord struct {
	Purpose      Purpose
	Email        string
	PasswordHash string // solo signup
	Code         string
	ExpiresAt    time.Time
	// Version la asigna el store; se usa para compare-and-swap.
	Version int64
}

// Expired reporta si el codigo vencio en now. El instante exacto de
// expiracion todavia es valido.
func (r CodeRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// EmailKey normaliza un email para usarlo como clave de almacenamiento.
// Reemplaza '.' por ',' y nada mas: "a.b@x.com" y "a,b@x.com" colisionan.
func EmailKey(email string) string {
	return strings.ReplaceAll(email, ".", ",")
}
