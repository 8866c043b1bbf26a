package errors

import (
	"errors"
	"fmt"
)

// Common error types for the login handshake service
var (
	// Provider errors
	ErrProviderUnavailable = errors.New("provider unavailable")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")

	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionNotReady  = errors.New("session not authorized")
	ErrDuplicateSession = errors.New("session already exists")

	// Callback errors
	ErrMalformedCallback = errors.New("malformed callback")

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
