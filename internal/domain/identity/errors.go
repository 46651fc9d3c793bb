package identity

import "errors"

var (
	// ErrAuthenticationFailed indicates the identity service rejected a sign-in.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrSessionNotFound indicates an unknown, closed or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput indicates invalid identity input.
	ErrInvalidInput = errors.New("invalid identity input")
	// ErrNotSignedIn indicates an operation that requires a signed-in client.
	ErrNotSignedIn = errors.New("not signed in")
)
