package auth

import "github.com/pkg/errors"

var (
	// ErrInvalidCredentials is returned by Login when either field is empty.
	ErrInvalidCredentials = errors.New("Username and password required")
	// ErrMissingToken is returned when a handshake carries no credential.
	ErrMissingToken = errors.New("Authentication error: No token provided")
	// ErrInvalidToken is returned when a credential fails signature or expiry checks.
	ErrInvalidToken = errors.New("Authentication error: Invalid token")
)

// Reason maps err to the user-facing message of the sentinel it wraps.
// Unknown errors collapse to the invalid token message.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	case errors.Is(err, ErrMissingToken):
		return ErrMissingToken.Error()
	default:
		return ErrInvalidToken.Error()
	}
}
