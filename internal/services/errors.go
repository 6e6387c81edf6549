package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrIdentityMismatch means the profile row for a Telegram account is
	// keyed by a different identity id than its credential.
	ErrIdentityMismatch = errors.New("profile and credential identity ids diverge")

	// ErrForeignCredential means a Telegram pseudo-email is held by a
	// credential some other provider created.
	ErrForeignCredential = errors.New("pseudo-email credential is not a telegram credential")
)

// EstablishError wraps an unrecoverable credential store failure.
type EstablishError struct {
	Cause error
}

func (e *EstablishError) Error() string {
	return "establish session: " + e.Cause.Error()
}

func (e *EstablishError) Unwrap() error {
	return e.Cause
}

// PersistenceError wraps a profile store failure.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
