package errors

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the client core. Every service-boundary failure is
// converted to one of these before it reaches the rendering layer.
var (
	// Session errors
	ErrSessionUnavailable = errors.New("session unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Profile errors
	ErrProfileMissing = errors.New("no profile for authenticated session")

	// Mutation errors
	ErrMutationFailed       = errors.New("mutation failed")
	ErrRootProfileProtected = errors.New("root profile cannot be modified")
	ErrActionInFlight       = errors.New("action already in flight")

	// Record errors
	ErrNotFound        = errors.New("not found")
	ErrMalformedRecord = errors.New("malformed record")
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
