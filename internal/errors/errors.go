package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Academy client SDK
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrExternalAuthFailed = errors.New("external sign-in failed")

	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNoSession      = errors.New("no session")

	// ErrMalformedSession marks a persisted session record that could not be
	// decoded. It is recovered internally (treated as logged-out) and never
	// surfaced to callers of the session store.
	ErrMalformedSession = errors.New("malformed persisted session")

	// Transport errors
	ErrNetwork = errors.New("network error")

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
