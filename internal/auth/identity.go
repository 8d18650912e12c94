package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// StubUserID is the id given to every identity. No account store exists, so
// all logins share it.
const StubUserID = 1

const emailDomain = "@example.com"

// Identity is the user a credential speaks for.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewIdentity derives the identity for username.
func NewIdentity(username string) Identity {
	return Identity{
		ID:       StubUserID,
		Username: username,
		Email:    username + emailDomain,
	}
}

// Claims is the JWT payload. The identity fields sit at the top level of the
// token next to iat/exp.
type Claims struct {
	UserID   int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.UserID, Username: c.Username, Email: c.Email}
}

func subjectFor(id Identity) string {
	return strconv.Itoa(id.ID)
}
