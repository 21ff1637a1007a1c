package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrCodeNotFound       = errors.New("code not found")
	ErrCodeExpired        = errors.New("code expired")
	ErrCodeMismatch       = errors.New("code mismatch")
	ErrCodeConflict       = errors.New("code updated concurrently")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotificationFailed = errors.New("notification failed")
)
