package googleauth

import (
	"context"
	"errors"
)

var (
	// ErrCodeInvalid indicates the authorization code was rejected
	// during the token exchange.
	ErrCodeInvalid = errors.New("google authorization code invalid")

	// ErrTokenExpired indicates the ID token is past its expiry.
	ErrTokenExpired = errors.New("google token expired")

	// ErrTokenInvalid indicates the ID token failed signature
	// verification.
	ErrTokenInvalid = errors.New("google token invalid")

	// ErrTokenMalformed indicates the ID token could not be parsed.
	ErrTokenMalformed = errors.New("google token malformed")

	// ErrAudience indicates the ID token was issued for a different
	// client.
	ErrAudience = errors.New("google token audience mismatch")

	// ErrAuth covers any other failure while talking to Google.
	ErrAuth = errors.New("google authentication failed")
)

// Claims holds the identity fields extracted from a verified Google
// ID token.
type Claims struct {
	Subject       string
	Email         string
	GivenName     string
	FamilyName    string
	EmailVerified bool
}

// Provider exchanges an OAuth authorization code for verified identity
// claims.
type Provider interface {
	Exchange(ctx context.Context, code string) (Claims, error)
}
