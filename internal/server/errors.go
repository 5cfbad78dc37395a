package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewbase/crewbase/internal/googleauth"
	"github.com/crewbase/crewbase/internal/guard"
	identitydomain "github.com/crewbase/crewbase/internal/identity/domain"
	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/platform"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
	"github.com/crewbase/crewbase/internal/token"
)

// apiError carries a stable response code, an HTTP status and an
// optional data payload. Handlers and middleware raise it directly
// when the generic sentinel mapping is not enough.
type apiError struct {
	Code   string
	Status int
	Data   any
}

func (e *apiError) Error() string { return e.Code }

func newAPIError(code string, status int) *apiError {
	return &apiError{Code: code, Status: status}
}

func invalidRequestError() *apiError {
	return newAPIError("VALIDATION_ERROR", http.StatusBadRequest)
}

type response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// ErrorHandlingMiddleware converts the last error recorded on the
// context into the response envelope. Handlers record errors via
// AbortWithError and never write failure bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, code, data := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, response{
			Success:    false,
			StatusCode: status,
			Message:    code,
			Data:       data,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func mapError(err error) (int, string, any) {
	var api *apiError
	if errors.As(err, &api) {
		return api.Status, api.Code, api.Data
	}

	var blocked *guard.BlockedError
	if errors.As(err, &blocked) {
		// Key kind is attached by the guard middleware via apiError;
		// a bare BlockedError falls back to the IP code.
		return http.StatusBadRequest, "IP_BLOCKED", blockedData(blocked)
	}

	var incomplete *identitydomain.IncompleteProfileError
	if errors.As(err, &incomplete) {
		return http.StatusAccepted, "INCOMPLETE_PROFILE", gin.H{"token": incomplete.Token}
	}
	var noOrg *identitydomain.NoOrganizationError
	if errors.As(err, &noOrg) {
		return http.StatusAccepted, "USER_NOT_ASSOCIATED_WITH_ANY_ORGANIZATION", gin.H{"token": noOrg.Token}
	}
	var noPlan *identitydomain.NoPlanError
	if errors.As(err, &noPlan) {
		code := "USER_NOT_TAKEN_ANY_PLAN"
		if noPlan.Deactivated {
			code = "USER_PLAN_DEACTIVATED"
		}
		return http.StatusAccepted, code, gin.H{"token": noPlan.Token}
	}
	var subStatus *subdomain.StatusError
	if errors.As(err, &subStatus) {
		return http.StatusBadRequest, "SUBSCRIPTION_IS_" + strings.ToLower(string(subStatus.Status)), nil
	}

	if status, code, ok := sentinelCode(err); ok {
		return status, code, nil
	}

	return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", nil
}

func sentinelCode(err error) (int, string, bool) {
	switch {
	// token verification
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", true
	case errors.Is(err, token.ErrMissingFields):
		return http.StatusUnauthorized, "TOKEN_MISSING_REQUIRED_FIELDS", true
	case errors.Is(err, token.ErrInvalid):
		return http.StatusUnauthorized, "INVALID_TOKEN", true
	case errors.Is(err, token.ErrInvalidPlatform), errors.Is(err, platform.ErrInvalid):
		return http.StatusBadRequest, "INVALID_PLATFORM", true
	case errors.Is(err, token.ErrPlatformConfig):
		return http.StatusInternalServerError, "PLATFORM_CONFIGURATION_ERROR", true

	// identity
	case errors.Is(err, identitydomain.ErrUserNotFound):
		return http.StatusNotFound, "INVALID_EMAIL_OR_PASSWORD", true
	case errors.Is(err, identitydomain.ErrEmailExists):
		return http.StatusPaymentRequired, "EMAIL_ALREADY_EXISTS", true
	case errors.Is(err, identitydomain.ErrInvalidOtp):
		return http.StatusBadRequest, "INVALID_OTP", true
	case errors.Is(err, identitydomain.ErrOtpExpired):
		return http.StatusBadRequest, "OTP_EXPIRED", true
	case errors.Is(err, identitydomain.ErrOtpCooldown):
		return http.StatusBadRequest, "OTP_COOLDOWN_TIME", true
	case errors.Is(err, identitydomain.ErrInvalidCredential):
		return http.StatusUnauthorized, "INVALID_CREDENTIAL", true
	case errors.Is(err, identitydomain.ErrEmailNotVerified):
		return http.StatusUnauthorized, "EMAIL_NOT_VERIFIED", true
	case errors.Is(err, identitydomain.ErrDeactivated):
		return http.StatusUnauthorized, "USER_ACCOUNT_DEACTIVATED", true
	case errors.Is(err, identitydomain.ErrSuspended):
		return http.StatusUnauthorized, "USER_ACCOUNT_SUSPENDED", true
	case errors.Is(err, identitydomain.ErrResetNotRequested):
		return http.StatusBadRequest, "PASSWORD_RESET_NOT_REQUESTED", true
	case errors.Is(err, identitydomain.ErrInvalidRefresh):
		return http.StatusBadRequest, "INVALID_REFRESH_TOKEN", true
	case errors.Is(err, identitydomain.ErrHandoffInvalid):
		return http.StatusUnauthorized, "TOKEN_INVALID", true
	case errors.Is(err, identitydomain.ErrWeakPassword):
		return http.StatusBadRequest, "PASSWORD_WEAK", true

	// google exchange
	case errors.Is(err, googleauth.ErrCodeInvalid):
		return http.StatusUnauthorized, "GOOGLE_AUTH_CODE_INVALID", true
	case errors.Is(err, googleauth.ErrTokenExpired):
		return http.StatusUnauthorized, "GOOGLE_TOKEN_EXPIRED", true
	case errors.Is(err, googleauth.ErrTokenInvalid):
		return http.StatusUnauthorized, "INVALID_GOOGLE_TOKEN", true
	case errors.Is(err, googleauth.ErrTokenMalformed):
		return http.StatusUnauthorized, "GOOGLE_TOKEN_MALFORMED", true
	case errors.Is(err, googleauth.ErrAudience):
		return http.StatusUnauthorized, "INVALID_TOKEN_AUDIENCE", true
	case errors.Is(err, googleauth.ErrAuth):
		return http.StatusUnauthorized, "GOOGLE_AUTH_ERROR", true

	// organization
	case errors.Is(err, orgdomain.ErrNotFound):
		return http.StatusBadRequest, "ORGANIZATION_NOT_FOUND", true
	case errors.Is(err, orgdomain.ErrNotActive):
		return http.StatusUnauthorized, "ORGANIZATION_NOT_ACTIVE", true
	case errors.Is(err, orgdomain.ErrNameTaken):
		return http.StatusBadRequest, "ORGANIZATION_NAME_ALREADY_EXISTS", true
	case errors.Is(err, orgdomain.ErrAlreadyRegistered):
		return http.StatusBadRequest, "USER_ALREADY_REGISTERED", true
	case errors.Is(err, orgdomain.ErrMembershipNotFound):
		return http.StatusUnauthorized, "USER_NOT_A_MEMBER_OF_THIS_ORGANIZATION", true
	case errors.Is(err, orgdomain.ErrInvalidName):
		return http.StatusBadRequest, "ORGANIZATION_NAME_CONTAINS_INVALID_CHARACTERS", true
	case errors.Is(err, orgdomain.ErrSubdomainExhausted):
		return http.StatusConflict, "SUBDOMAIN_UNAVAILABLE", true
	case errors.Is(err, orgdomain.ErrDepartmentNotFound):
		return http.StatusNotFound, "DEPARTMENT_NOT_FOUND", true
	case errors.Is(err, orgdomain.ErrDepartmentExists):
		return http.StatusBadRequest, "DEPARTMENT_NAME_NOT_UNIQUE", true
	case errors.Is(err, orgdomain.ErrDepartmentLimit):
		return http.StatusBadRequest, "DEPARTMENT_LIMIT_REACHED", true
	case errors.Is(err, orgdomain.ErrForbidden):
		return http.StatusBadRequest, "WORKER_NOT_ALLOWED", true

	// subscription
	case errors.Is(err, subdomain.ErrPlanNotFound):
		return http.StatusNotFound, "PLAN_NOT_FOUND", true
	case errors.Is(err, subdomain.ErrPlanInactive):
		return http.StatusBadRequest, "SUBSCRIPTION_PLAN_IS_NO_LONGER_AVAILABLE", true
	case errors.Is(err, subdomain.ErrNoSubscription):
		return http.StatusBadRequest, "ORGANIZATION_HAS_NO_ACTIVE_SUBSCRIPTION", true
	case errors.Is(err, subdomain.ErrSubscriptionExpired):
		return http.StatusBadRequest, "SUBSCRIPTION_HAS_EXPIRED", true
	case errors.Is(err, subdomain.ErrNotOwner):
		return http.StatusUnauthorized, "UNAUTHORIZED_ACCESS", true
	case errors.Is(err, subdomain.ErrInvalidBillingCycle):
		return http.StatusBadRequest, "BILLING_CYCLE_INVALID", true
	case errors.Is(err, subdomain.ErrInvalidMemberCount):
		return http.StatusBadRequest, "MEMBER_COUNT_INVALID", true
	case errors.Is(err, subdomain.ErrFeatureNotInPlan):
		return http.StatusForbidden, "FEATURE_NOT_AVAILABLE_IN_CURRENT_PLAN", true
	}
	return 0, "", false
}

func blockedData(blocked *guard.BlockedError) gin.H {
	return gin.H{
		"remainingTime": fmt.Sprintf("%d minutes", blocked.RemainingMinutes()),
		"reason":        blocked.Reason,
	}
}
