package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/platform"
)

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*OtpIssued, error)
	VerifyOtp(ctx context.Context, req VerifyOtpRequest) (*VerifyOtpResult, error)
	ResendOtp(ctx context.Context, req OtpRequest) error
	ForgotPassword(ctx context.Context, req OtpRequest) (*OtpIssued, error)
	ResetPassword(ctx context.Context, identityID snowflake.ID, password string) error

	CompleteProfile(ctx context.Context, identityID snowflake.ID, req CompleteProfileRequest) error
	Profile(ctx context.Context, identityID snowflake.ID) (*ProfileDetail, error)
	EditProfile(ctx context.Context, identityID snowflake.ID, req EditProfileRequest) (*ProfileDetail, error)

	// Gate runs the profile, organization and subscription checks an
	// identity must pass before full tokens may be issued. On success
	// it returns the membership tokens should be bound to.
	Gate(ctx context.Context, identityID snowflake.ID) (*orgdomain.Membership, error)

	Login(ctx context.Context, req LoginRequest, p platform.Platform) (LoginOutcome, error)
	GoogleLogin(ctx context.Context, req GoogleLoginRequest, p platform.Platform) (LoginOutcome, error)
	RedeemHandoff(ctx context.Context, rawToken string) (*TokenPair, error)
	Refresh(ctx context.Context, rawToken string, p platform.Platform) (string, error)

	Get(ctx context.Context, identityID snowflake.ID) (*User, error)
}

type SignupRequest struct {
	Email    string
	Password string
	IP       string
}

type OtpRequest struct {
	Email string
	IP    string
}

type VerifyOtpRequest struct {
	Email string
	Code  string
	IP    string
}

// OtpIssued reports a freshly generated passcode. The code travels in
// mail; it is surfaced here for the response contract and for tests.
type OtpIssued struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

type VerifyOtpResult struct {
	Token string
	// PasswordReset marks that the verified code belongs to a
	// forgot-password flow rather than signup.
	PasswordReset bool
}

type CompleteProfileRequest struct {
	FirstName   string
	LastName    *string
	CountryCode string
	Phone       string
}

type EditProfileRequest struct {
	FirstName *string
	LastName  *string
	ImageURL  *string
	ImageKey  *string
}

type ProfileDetail struct {
	UserID       string  `json:"userId"`
	Email        string  `json:"email"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	ProfileImage *string `json:"profileImage"`
}

type LoginRequest struct {
	Email    string
	Password string
	IP       string
}

type GoogleLoginRequest struct {
	Code string
	IP   string
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginOutcome is the closed set of results a login can produce.
// Callers must switch on the concrete type and handle every branch.
type LoginOutcome interface {
	isLoginOutcome()
}

// LoginComplete carries full platform tokens.
type LoginComplete struct {
	Tokens TokenPair
}

// LoginHandoff carries the short-lived token a WEBSITE client redeems
// for full tokens on its tenant subdomain.
type LoginHandoff struct {
	Token string
}

// LoginNeedsProfile resumes at the complete-profile step.
type LoginNeedsProfile struct {
	Token string
}

// LoginNeedsOrganization resumes at organization registration.
type LoginNeedsOrganization struct {
	Token string
}

// LoginNeedsPlan resumes at plan purchase.
type LoginNeedsPlan struct {
	Token       string
	Deactivated bool
}

func (LoginComplete) isLoginOutcome()          {}
func (LoginHandoff) isLoginOutcome()           {}
func (LoginNeedsProfile) isLoginOutcome()      {}
func (LoginNeedsOrganization) isLoginOutcome() {}
func (LoginNeedsPlan) isLoginOutcome()         {}
