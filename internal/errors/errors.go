package errors

import (
	"errors"
	"fmt"
)

// Common error types for the client session layer
var (
	// Authentication errors
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Session errors
	ErrSessionExpired       = errors.New("session expired, please sign in again")
	ErrIncompleteCredential = errors.New("credential must contain both access and refresh tokens")
	ErrNoRefreshToken       = errors.New("no refresh token available")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Persistence errors
	ErrSessionNotFound = errors.New("no persisted session found")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
