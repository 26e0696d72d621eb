package auth

import "errors"

// Authentication outcomes. The gate and the login and logout handlers
// branch on these with errors.Is; anything else is an infrastructure failure.
var (
	// ErrMissingToken means no Authorization header was sent
	ErrMissingToken = errors.New("token not provided")

	// ErrMalformedToken means the header is not "Bearer <token>"
	ErrMalformedToken = errors.New("malformed authorization header")

	// ErrRevokedToken means the token was logged out before its expiry
	ErrRevokedToken = errors.New("token revoked")

	// ErrInvalidToken means the signature is wrong or the token expired
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnknownUser means the token names a user that no longer exists
	ErrUnknownUser = errors.New("user not found")

	// ErrInvalidCredentials covers both an unknown email and a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserExists means the email is already registered
	ErrUserExists = errors.New("user already exists")
)
