package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid login attempt")
	ErrDuplicateEmail     = errors.New("email is already in use by another account")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWrongOldPassword   = errors.New("incorrect password")
	ErrNotFound           = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")

	// ErrTransient marks delivery or I/O failures that callers may log and
	// ignore. Notifier implementations wrap transport failures with it.
	ErrTransient = errors.New("transient failure")
)
