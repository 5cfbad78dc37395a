package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	ListPlans(ctx context.Context) ([]PlanDetail, error)
	Purchase(ctx context.Context, identityID snowflake.ID, req PurchaseRequest) (*Subscription, error)

	// Entitlement loads the gate view for an organization: its
	// subscription, the plan and the plan's feature switches.
	Entitlement(ctx context.Context, orgID snowflake.ID) (*Entitlement, error)
}

type PlanDetail struct {
	Plan
	Features []PlanFeature `json:"features"`
}

type PurchaseRequest struct {
	OrganizationID snowflake.ID
	PlanID         snowflake.ID
	BillingCycle   BillingCycle
	MemberCount    int
}

type Entitlement struct {
	Subscription *Subscription
	Plan         *Plan
	Features     []PlanFeature
}

// FeatureEnabled reports whether the named feature is switched on.
func (e *Entitlement) FeatureEnabled(name string) bool {
	for _, f := range e.Features {
		if f.Name == name && f.IsEnabled {
			return true
		}
	}
	return false
}
