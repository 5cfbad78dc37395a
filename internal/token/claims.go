package token

import (
	"github.com/crewbase/crewbase/internal/platform"
	"github.com/golang-jwt/jwt/v5"
)

// Claim field names are part of the wire contract and must round-trip
// exactly: identityId, organizationId, platform, accessNonce, refreshNonce,
// handoffNonce.

// AccessClaims authorize API calls for one (identity, organization, platform).
type AccessClaims struct {
	IdentityID     string            `json:"identityId"`
	OrganizationID string            `json:"organizationId"`
	Platform       platform.Platform `json:"platform"`
	AccessNonce    string            `json:"accessNonce"`
	jwt.RegisteredClaims
}

// RefreshClaims are exchanged for a fresh access token.
type RefreshClaims struct {
	IdentityID     string            `json:"identityId"`
	OrganizationID string            `json:"organizationId"`
	Platform       platform.Platform `json:"platform"`
	RefreshNonce   string            `json:"refreshNonce"`
	jwt.RegisteredClaims
}

// IdentityClaims carry only the identity id; they let a client resume a
// multi-step onboarding flow without re-authenticating.
type IdentityClaims struct {
	IdentityID string `json:"identityId"`
	jwt.RegisteredClaims
}

// HandoffClaims bridge a website login to tenant-scoped token issuance.
// Single-use: the stored nonce is cleared on redemption.
type HandoffClaims struct {
	IdentityID     string `json:"identityId"`
	OrganizationID string `json:"organizationId"`
	HandoffNonce   string `json:"handoffNonce"`
	jwt.RegisteredClaims
}

// platformClaims reads only the platform claim, without verification.
type platformClaims struct {
	Platform string `json:"platform"`
	jwt.RegisteredClaims
}

// Pair bundles a freshly issued access/refresh token set with the nonces
// embedded in them. The caller persists the nonces onto the membership row.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessNonce  string
	RefreshNonce string
}
