package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iddomain "github.com/crewbase/crewbase/internal/identity/domain"
	"github.com/crewbase/crewbase/internal/platform"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issued, err := s.identitySvc.Signup(c.Request.Context(), iddomain.SignupRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "USER_CREATED_SUCCESSFULLY", issued)
}

type verifyOtpRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

func (s *Server) VerifyOtp(c *gin.Context) {
	var req verifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.identitySvc.VerifyOtp(c.Request.Context(), iddomain.VerifyOtpRequest{
		Email: strings.TrimSpace(req.Email),
		Code:  strings.TrimSpace(req.Otp),
		IP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A verified forgot-password code resumes at password reset, which
	// the client distinguishes by status code.
	status := http.StatusAccepted
	if result.PasswordReset {
		status = http.StatusResetContent
	}
	respond(c, status, "OTP_VERIFIED_SUCCESSFULLY", gin.H{"token": result.Token})
}

type otpRequest struct {
	Email string `json:"email"`
}

func (s *Server) ResendOtp(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.identitySvc.ResendOtp(c.Request.Context(), iddomain.OtpRequest{
		Email: strings.TrimSpace(req.Email),
		IP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "OTP_RESENT_SUCCESSFULLY", gin.H{})
}

// VerifyToken confirms the bearer identity token still maps onto a
// live account and that the full onboarding ladder has been climbed:
// profile, organization, then an active subscription. Interrupted
// steps answer with a fresh identity token so the client can resume.
func (s *Server) VerifyToken(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	if _, err := s.identitySvc.Gate(c.Request.Context(), identityID); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "TOKEN_VERIFIED", gin.H{})
}

type completeProfileRequest struct {
	FirstName   string  `json:"firstName"`
	LastName    *string `json:"lastName"`
	CountryCode string  `json:"countryCode"`
	Phone       string  `json:"phone"`
}

func (s *Server) CompleteProfile(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	var req completeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.identitySvc.CompleteProfile(c.Request.Context(), identityID, iddomain.CompleteProfileRequest{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    req.LastName,
		CountryCode: strings.TrimSpace(req.CountryCode),
		Phone:       strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PROFILE_UPDATED_SUCCESSFULLY", gin.H{})
}

func (s *Server) ForgotPassword(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issued, err := s.identitySvc.ForgotPassword(c.Request.Context(), iddomain.OtpRequest{
		Email: strings.TrimSpace(req.Email),
		IP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "FORGOT_PASSWORD_OTP_SENT_SUCCESSFULLY", issued)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) ResetPassword(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.identitySvc.ResetPassword(c.Request.Context(), identityID, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PASSWORD_RESET_SUCCESSFULLY", gin.H{})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(p platform.Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		outcome, err := s.identitySvc.Login(c.Request.Context(), iddomain.LoginRequest{
			Email:    strings.TrimSpace(req.Email),
			Password: req.Password,
			IP:       c.ClientIP(),
		}, p)
		if err != nil {
			s.metrics.ObserveLogin(p.String(), "failure")
			AbortWithError(c, err)
			return
		}

		s.respondLogin(c, p, outcome)
	}
}

type googleLoginRequest struct {
	Code string `json:"code"`
}

func (s *Server) GoogleLogin(p platform.Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req googleLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		outcome, err := s.identitySvc.GoogleLogin(c.Request.Context(), iddomain.GoogleLoginRequest{
			Code: strings.TrimSpace(req.Code),
			IP:   c.ClientIP(),
		}, p)
		if err != nil {
			s.metrics.ObserveLogin(p.String(), "failure")
			AbortWithError(c, err)
			return
		}

		s.respondLogin(c, p, outcome)
	}
}

// respondLogin maps the closed set of login outcomes onto the wire.
// Interrupted logins reuse the error envelope so clients get the
// resume token in the same shape regardless of which step raised it.
func (s *Server) respondLogin(c *gin.Context, p platform.Platform, outcome iddomain.LoginOutcome) {
	switch o := outcome.(type) {
	case iddomain.LoginComplete:
		s.metrics.ObserveLogin(p.String(), "complete")
		respond(c, http.StatusOK, "LOGIN_SUCCESSFULLY", o.Tokens)
	case iddomain.LoginHandoff:
		s.metrics.ObserveLogin(p.String(), "handoff")
		respond(c, http.StatusOK, "LOGIN_SUCCESSFULLY", gin.H{"token": o.Token})
	case iddomain.LoginNeedsProfile:
		s.metrics.ObserveLogin(p.String(), "needs_profile")
		AbortWithError(c, &iddomain.IncompleteProfileError{Token: o.Token})
	case iddomain.LoginNeedsOrganization:
		s.metrics.ObserveLogin(p.String(), "needs_organization")
		AbortWithError(c, &iddomain.NoOrganizationError{Token: o.Token})
	case iddomain.LoginNeedsPlan:
		s.metrics.ObserveLogin(p.String(), "needs_plan")
		AbortWithError(c, &iddomain.NoPlanError{Token: o.Token, Deactivated: o.Deactivated})
	default:
		AbortWithError(c, newAPIError("INTERNAL_SERVER_ERROR", http.StatusInternalServerError))
	}
}

type verifySubdomainTokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) RedeemHandoff(c *gin.Context) {
	var req verifySubdomainTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pair, err := s.identitySvc.RedeemHandoff(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "SUBDOMAIN_TOKEN_VERIFIED", pair)
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) Refresh(p platform.Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		access, err := s.identitySvc.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken), p)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		respond(c, http.StatusOK, "TOKEN_REFRESHED", gin.H{"accessToken": access})
	}
}

func (s *Server) GetProfileDetail(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	detail, err := s.identitySvc.Profile(c.Request.Context(), identityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PROFILE_DETAIL", detail)
}

type editProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	ImageURL  *string `json:"profileImage"`
	ImageKey  *string `json:"profileImageKey"`
}

func (s *Server) EditProfileDetail(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	var req editProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.identitySvc.EditProfile(c.Request.Context(), identityID, iddomain.EditProfileRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
		ImageKey:  req.ImageKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PROFILE_UPDATED_SUCCESSFULLY", detail)
}
