package auth

import "time"

// DefaultSecret is used when no JWT_SECRET is configured. It is public
// knowledge and must not be used outside development.
const DefaultSecret = "test-secret-key"

// TokenDuration is the fixed validity window of an issued credential.
const TokenDuration = 24 * time.Hour

// JWTConfig holds the signing parameters shared by Issuer and Verifier.
type JWTConfig struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultJWTConfig returns the development configuration.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:     DefaultSecret,
		TokenDuration: TokenDuration,
	}
}

// UsesDefaultSecret reports whether the insecure fallback key is in effect.
func (c JWTConfig) UsesDefaultSecret() bool {
	return c.SecretKey == "" || c.SecretKey == DefaultSecret
}

func (c JWTConfig) key() []byte {
	if c.SecretKey == "" {
		return []byte(DefaultSecret)
	}
	return []byte(c.SecretKey)
}

func (c JWTConfig) duration() time.Duration {
	if c.TokenDuration == 0 {
		return TokenDuration
	}
	return c.TokenDuration
}
