// Package token issues and verifies the bearer token families: access,
// refresh, identity and subdomain-handoff tokens.
package token

import (
	"errors"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/platform"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "crewbase"

// Issuer signs and verifies tokens. Access and refresh tokens use
// per-platform secrets; identity and handoff tokens share the global secret.
type Issuer struct {
	cfg config.TokenConfig
	clk clock.Clock
}

func NewIssuer(cfg config.Config, clk clock.Clock) *Issuer {
	return &Issuer{cfg: cfg.Token, clk: clk}
}

// accessSecret resolves the access-token signing secret for p.
func (i *Issuer) accessSecret(p platform.Platform) ([]byte, error) {
	var secret string
	switch p {
	case platform.Website:
		secret = i.cfg.WebsiteAccessSecret
	case platform.App:
		secret = i.cfg.AppAccessSecret
	case platform.Extension:
		secret = i.cfg.ExtensionAccessSecret
	default:
		return nil, ErrInvalidPlatform
	}
	if secret == "" {
		return nil, ErrPlatformConfig
	}
	return []byte(secret), nil
}

func (i *Issuer) refreshSecret(p platform.Platform) ([]byte, error) {
	var secret string
	switch p {
	case platform.Website:
		secret = i.cfg.WebsiteRefreshSecret
	case platform.App:
		secret = i.cfg.AppRefreshSecret
	case platform.Extension:
		secret = i.cfg.ExtensionRefreshSecret
	default:
		return nil, ErrInvalidPlatform
	}
	if secret == "" {
		return nil, ErrPlatformConfig
	}
	return []byte(secret), nil
}

// IssuePair mints an access/refresh token pair with two fresh random nonces.
// The caller is responsible for persisting the nonces onto the membership row.
func (i *Issuer) IssuePair(identityID, organizationID string, p platform.Platform) (*Pair, error) {
	accessSecret, err := i.accessSecret(p)
	if err != nil {
		return nil, err
	}
	refreshSecret, err := i.refreshSecret(p)
	if err != nil {
		return nil, err
	}

	var accessTTL, refreshTTL = i.cfg.WebsiteAccessTTL, i.cfg.WebsiteRefreshTTL
	switch p {
	case platform.Website:
	case platform.App:
		accessTTL, refreshTTL = i.cfg.AppAccessTTL, i.cfg.AppRefreshTTL
	case platform.Extension:
		accessTTL, refreshTTL = i.cfg.ExtensionAccessTTL, i.cfg.ExtensionRefreshTTL
	}

	accessNonce := uuid.NewString()
	refreshNonce := uuid.NewString()
	now := i.clk.Now()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		IdentityID:     identityID,
		OrganizationID: organizationID,
		Platform:       p,
		AccessNonce:    accessNonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   identityID,
		},
	}).SignedString(accessSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		IdentityID:     identityID,
		OrganizationID: organizationID,
		Platform:       p,
		RefreshNonce:   refreshNonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   identityID,
		},
	}).SignedString(refreshSecret)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessNonce:  accessNonce,
		RefreshNonce: refreshNonce,
	}, nil
}

// IssueAccess mints only an access token carrying the provided nonce.
// Used by the refresh flow, which rotates the access token without touching
// the refresh token.
func (i *Issuer) IssueAccess(identityID, organizationID string, p platform.Platform, nonce string) (string, error) {
	secret, err := i.accessSecret(p)
	if err != nil {
		return "", err
	}

	ttl := i.cfg.WebsiteAccessTTL
	switch p {
	case platform.Website:
	case platform.App:
		ttl = i.cfg.AppAccessTTL
	case platform.Extension:
		ttl = i.cfg.ExtensionAccessTTL
	}

	now := i.clk.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		IdentityID:     identityID,
		OrganizationID: organizationID,
		Platform:       p,
		AccessNonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   identityID,
		},
	}).SignedString(secret)
}

// IssueIdentity mints a bare identity token signed with the global secret.
func (i *Issuer) IssueIdentity(identityID string) (string, error) {
	if i.cfg.GlobalSecret == "" {
		return "", ErrPlatformConfig
	}
	now := i.clk.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		IdentityID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.IdentityTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   identityID,
		},
	}).SignedString([]byte(i.cfg.GlobalSecret))
}

// IssueHandoff mints a short-lived single-use handoff token and returns the
// nonce embedded in it, which the caller stores on the membership row.
func (i *Issuer) IssueHandoff(identityID, organizationID string) (token, nonce string, err error) {
	if i.cfg.GlobalSecret == "" {
		return "", "", ErrPlatformConfig
	}
	nonce = uuid.NewString()
	now := i.clk.Now()
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, HandoffClaims{
		IdentityID:     identityID,
		OrganizationID: organizationID,
		HandoffNonce:   nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.HandoffTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   identityID,
		},
	}).SignedString([]byte(i.cfg.GlobalSecret))
	if err != nil {
		return "", "", err
	}
	return token, nonce, nil
}

// VerifyAccess checks signature and expiry against the platform's access
// secret and requires the identity, organization and nonce claims.
func (i *Issuer) VerifyAccess(raw string, p platform.Platform) (*AccessClaims, error) {
	secret, err := i.accessSecret(p)
	if err != nil {
		return nil, err
	}

	claims := &AccessClaims{}
	if err := i.parse(raw, claims, secret); err != nil {
		return nil, err
	}
	if claims.IdentityID == "" || claims.OrganizationID == "" || claims.AccessNonce == "" {
		return nil, ErrMissingFields
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry against the platform's refresh
// secret, which is distinct from the access secret.
func (i *Issuer) VerifyRefresh(raw string, p platform.Platform) (*RefreshClaims, error) {
	secret, err := i.refreshSecret(p)
	if err != nil {
		return nil, err
	}

	claims := &RefreshClaims{}
	if err := i.parse(raw, claims, secret); err != nil {
		return nil, err
	}
	if claims.IdentityID == "" || claims.OrganizationID == "" || claims.RefreshNonce == "" {
		return nil, ErrMissingFields
	}
	return claims, nil
}

// VerifyIdentity validates a bare identity token.
func (i *Issuer) VerifyIdentity(raw string) (*IdentityClaims, error) {
	if i.cfg.GlobalSecret == "" {
		return nil, ErrPlatformConfig
	}
	claims := &IdentityClaims{}
	if err := i.parse(raw, claims, []byte(i.cfg.GlobalSecret)); err != nil {
		return nil, err
	}
	if claims.IdentityID == "" {
		return nil, ErrMissingFields
	}
	return claims, nil
}

// VerifyHandoff validates a subdomain-handoff token.
func (i *Issuer) VerifyHandoff(raw string) (*HandoffClaims, error) {
	if i.cfg.GlobalSecret == "" {
		return nil, ErrPlatformConfig
	}
	claims := &HandoffClaims{}
	if err := i.parse(raw, claims, []byte(i.cfg.GlobalSecret)); err != nil {
		return nil, err
	}
	if claims.IdentityID == "" || claims.OrganizationID == "" || claims.HandoffNonce == "" {
		return nil, ErrMissingFields
	}
	return claims, nil
}

// DecodePlatform reads the platform claim without verifying the signature.
// The auth gate uses it to pick the right secret before verification.
func (i *Issuer) DecodePlatform(raw string) (platform.Platform, error) {
	claims := &platformClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", ErrInvalid
	}
	if claims.Platform == "" {
		return "", ErrMissingFields
	}
	p, err := platform.Parse(claims.Platform)
	if err != nil {
		return "", ErrInvalidPlatform
	}
	return p, nil
}

func (i *Issuer) parse(raw string, claims jwt.Claims, secret []byte) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.clk.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !tok.Valid {
		return ErrInvalid
	}
	return nil
}
