package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanInactive         = errors.New("plan is no longer available")
	ErrNoSubscription       = errors.New("organization has no subscription")
	ErrSubscriptionExpired  = errors.New("subscription has expired")
	ErrNotOwner             = errors.New("identity does not own the organization")
	ErrInvalidBillingCycle  = errors.New("invalid billing cycle")
	ErrFeatureNotInPlan     = errors.New("feature not available in current plan")
	ErrInvalidMemberCount   = errors.New("member count must be positive")
)

// StatusError reports a subscription in a non-ACTIVE state.
type StatusError struct {
	Status SubscriptionStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("subscription is %s", strings.ToLower(string(e.Status)))
}
