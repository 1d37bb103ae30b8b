package auth

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when the provider was built without a
// client id or secret.
var ErrMissingCredentials = errors.New("twitch client id and secret are required")

// AuthError reports a failed token acquisition.
type AuthError struct {
	Op  string // Operation that failed (e.g., "request token")
	Err error  // Underlying error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("igdb auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
