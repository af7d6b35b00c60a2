package shared

import (
	"errors"
	"fmt"

	"github.com/pressroom/pressroom/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = httpx.ErrDuplicate
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", httpx.ErrUnauthorized)
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", httpx.ErrDuplicate)
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError carries per-field messages and matches httpx.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap ties the error to the transport sentinel.
func (e *ValidationError) Unwrap() error {
	return httpx.ErrValidation
}

// UserSafeMessage returns text that can be shown to end users.
func UserSafeMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "Please check the highlighted fields"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrEmailTaken):
		return "This email address is already in use"
	case errors.Is(err, ErrNotFound):
		return "The requested item could not be found"
	default:
		return "Something went wrong, please try again"
	}
}
