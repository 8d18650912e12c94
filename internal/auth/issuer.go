package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Issuer exchanges a username/password pair for a signed credential.
type Issuer struct {
	config JWTConfig
	now    func() time.Time
}

// NewIssuer creates an Issuer with the given configuration.
func NewIssuer(config JWTConfig) *Issuer {
	return &Issuer{config: config, now: time.Now}
}

// Login validates the pair and returns a token for the derived identity.
// Any non-empty pair is accepted; the password is never checked against
// anything.
func (i *Issuer) Login(username, password string) (string, Identity, error) {
	if username == "" || password == "" {
		return "", Identity{}, ErrInvalidCredentials
	}

	identity := NewIdentity(username)
	token, err := i.Issue(identity)
	if err != nil {
		return "", Identity{}, err
	}
	return token, identity, nil
}

// Issue signs a credential for identity that expires after the configured
// duration.
func (i *Issuer) Issue(identity Identity) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectFor(identity),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.duration())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.key())
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
