package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/crewbase/crewbase/internal/guard"
	iddomain "github.com/crewbase/crewbase/internal/identity/domain"
	"github.com/crewbase/crewbase/internal/platform"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
	"github.com/crewbase/crewbase/internal/token"
)

const (
	ctxIdentityIDKey   = "identity_id"
	ctxOrgIDKey        = "organization_id"
	ctxMembershipIDKey = "membership_id"
	ctxRoleKey         = "role"
	ctxPlatformKey     = "platform"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// AuthRequired is the access-token gate. Every step is validated
// against the database: the membership must exist, both sides must be
// active and the stored access nonce must match the token's. The
// middleware only reads; nothing is revoked here.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
			return
		}

		p, err := s.issuer.DecodePlatform(raw)
		if err != nil {
			if errors.Is(err, token.ErrInvalidPlatform) {
				AbortWithError(c, err)
				return
			}
			AbortWithError(c, newAPIError("INVALID_TOKEN_STRUCTURE", http.StatusUnauthorized))
			return
		}

		claims, err := s.issuer.VerifyAccess(raw, p)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		identityID, err := snowflake.ParseString(claims.IdentityID)
		if err != nil {
			AbortWithError(c, token.ErrInvalid)
			return
		}
		orgID, err := snowflake.ParseString(claims.OrganizationID)
		if err != nil {
			AbortWithError(c, token.ErrInvalid)
			return
		}

		ctx := c.Request.Context()

		member, err := s.orgRepo.FindMembership(ctx, identityID, orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := s.identitySvc.Get(ctx, identityID)
		if err != nil {
			AbortWithError(c, newAPIError("USER_ACCOUNT_NOT_ACTIVE", http.StatusUnauthorized))
			return
		}
		if user.Status != iddomain.StatusActive {
			AbortWithError(c, newAPIError("USER_ACCOUNT_NOT_ACTIVE", http.StatusUnauthorized))
			return
		}

		org, err := s.orgRepo.FindOrganizationByID(ctx, orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !org.IsActive || org.IsDeleted {
			AbortWithError(c, newAPIError("ORGANIZATION_NOT_ACTIVE", http.StatusUnauthorized))
			return
		}

		stored, err := member.AccessNonce(p)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if stored == nil || *stored != claims.AccessNonce {
			AbortWithError(c, newAPIError("ACCESS_TOKEN_NONCE_MISMATCH", http.StatusUnauthorized))
			return
		}

		c.Set(ctxIdentityIDKey, identityID)
		c.Set(ctxOrgIDKey, orgID)
		c.Set(ctxMembershipIDKey, member.ID)
		c.Set(ctxRoleKey, member.Role)
		c.Set(ctxPlatformKey, p)
		c.Next()
	}
}

// IdentityTokenRequired gates the onboarding endpoints that run before
// an organization exists. It accepts only the bare identity token.
func (s *Server) IdentityTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
			return
		}

		claims, err := s.issuer.VerifyIdentity(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		identityID, err := snowflake.ParseString(claims.IdentityID)
		if err != nil {
			AbortWithError(c, token.ErrInvalid)
			return
		}

		if _, err := s.identitySvc.Get(c.Request.Context(), identityID); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ctxIdentityIDKey, identityID)
		c.Next()
	}
}

// SubscriptionRequired verifies the authenticated organization holds a
// live subscription, optionally requiring named plan features.
func (s *Server) SubscriptionRequired(features ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := orgIDFrom(c)
		if !ok {
			AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
			return
		}

		ent, err := s.subSvc.Entitlement(c.Request.Context(), orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if !ent.Plan.IsActive {
			AbortWithError(c, subdomain.ErrPlanInactive)
			return
		}
		if ent.Subscription.Status != subdomain.SubscriptionStatusActive {
			AbortWithError(c, &subdomain.StatusError{Status: ent.Subscription.Status})
			return
		}
		if s.clk.Now().After(ent.Subscription.EndDate) {
			AbortWithError(c, subdomain.ErrSubscriptionExpired)
			return
		}
		for _, feature := range features {
			if !ent.FeatureEnabled(feature) {
				AbortWithError(c, subdomain.ErrFeatureNotInPlan)
				return
			}
		}
		c.Next()
	}
}

// IPGuard rejects requests from addresses blocked for repeated
// failures. Failure tracking happens in the identity service.
func (s *Server) IPGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.guards.IP.Check(c.Request.Context(), c.ClientIP()); err != nil {
			var blocked *guard.BlockedError
			if errors.As(err, &blocked) {
				AbortWithError(c, &apiError{
					Code:   "IP_BLOCKED",
					Status: http.StatusBadRequest,
					Data:   blockedData(blocked),
				})
				return
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// EmailGuard rejects requests for an email address blocked for
// repeated failures. It peeks at the JSON body without consuming it.
func (s *Server) EmailGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}

		if err := s.guards.Email.Check(c.Request.Context(), email); err != nil {
			var blocked *guard.BlockedError
			if errors.As(err, &blocked) {
				AbortWithError(c, &apiError{
					Code:   "EMAIL_BLOCKED",
					Status: http.StatusBadRequest,
					Data:   blockedData(blocked),
				})
				return
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func identityIDFrom(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(ctxIdentityIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}

func orgIDFrom(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(ctxOrgIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}

func platformFrom(c *gin.Context) (platform.Platform, bool) {
	v, ok := c.Get(ctxPlatformKey)
	if !ok {
		return "", false
	}
	p, ok := v.(platform.Platform)
	return p, ok
}
