package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidOtp         = errors.New("invalid otp")
	ErrOtpExpired         = errors.New("otp expired")
	ErrOtpCooldown        = errors.New("otp cooldown in effect")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrDeactivated        = errors.New("user account deactivated")
	ErrSuspended          = errors.New("user account suspended")
	ErrResetNotRequested  = errors.New("no pending password reset")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrHandoffInvalid     = errors.New("handoff token invalid")
	ErrWeakPassword       = errors.New("password does not meet policy")
)

// IncompleteProfileError interrupts a workflow until the profile step
// is done. Token lets the client resume without re-authenticating.
type IncompleteProfileError struct {
	Token string
}

func (e *IncompleteProfileError) Error() string { return "profile incomplete" }

// NoOrganizationError interrupts a workflow until the identity joins
// or registers an organization.
type NoOrganizationError struct {
	Token string
}

func (e *NoOrganizationError) Error() string { return "not associated with any organization" }

// NoPlanError interrupts a workflow until the owned organization holds
// an active subscription. Deactivated distinguishes "never purchased"
// from "purchased but no longer active".
type NoPlanError struct {
	Token       string
	Deactivated bool
}

func (e *NoPlanError) Error() string {
	if e.Deactivated {
		return "plan deactivated"
	}
	return "no plan purchased"
}
