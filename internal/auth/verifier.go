package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenParam is the query parameter that carries the credential on a
// WebSocket handshake.
const TokenParam = "token"

// Verifier checks credentials presented on a handshake.
type Verifier struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewVerifier creates a Verifier sharing config with the Issuer.
func NewVerifier(config JWTConfig) *Verifier {
	return &Verifier{
		config: config,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Authenticate extracts the credential from r and verifies it.
func (v *Verifier) Authenticate(r *http.Request) (Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	return v.Verify(token)
}

// Verify checks the signature and expiry of token and returns its identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.config.key(), nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	return claims.Identity(), nil
}

// TokenFromRequest returns the credential from the token query parameter, or
// failing that the second field of the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get(TokenParam); token != "" {
		return token
	}

	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
