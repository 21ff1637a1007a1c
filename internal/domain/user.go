package domain

import "time"

// User es una cuenta confirmada; solo se crea tras verificar el alta.
type User struct {
	ID           string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
