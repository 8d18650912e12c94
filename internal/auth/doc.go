// Package auth issues and verifies the signed credentials that gate the relay.
//
// The Issuer backs the login endpoint: any non-empty username/password pair is
// accepted and exchanged for an HS256 token that embeds the caller's Identity.
// There is no user store behind it. The Verifier runs once per WebSocket
// handshake and decodes the Identity that stays attached to the connection for
// its whole lifetime; a token expiring mid-connection does not disconnect it.
package auth
