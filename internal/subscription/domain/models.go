// Package domain contains persistence models for plans and subscriptions.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanType distinguishes the two sellable tiers.
type PlanType string

const (
	PlanTypeStandard PlanType = "STANDARD"
	PlanTypePremium  PlanType = "PREMIUM"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// BillingCycle selects which plan price applies.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleYearly  BillingCycle = "YEARLY"
)

// ParseBillingCycle maps raw input onto the closed cycle set.
func ParseBillingCycle(raw string) (BillingCycle, error) {
	switch BillingCycle(strings.ToUpper(strings.TrimSpace(raw))) {
	case BillingCycleMonthly:
		return BillingCycleMonthly, nil
	case BillingCycleYearly:
		return BillingCycleYearly, nil
	default:
		return "", ErrInvalidBillingCycle
	}
}

// Plan is a sellable tier.
type Plan struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"planId"`
	Name         string       `gorm:"type:text;not null" json:"planName"`
	Description  string       `gorm:"type:text" json:"description"`
	PlanType     PlanType     `gorm:"column:plan_type;type:text;not null" json:"planType"`
	MonthlyPrice float64      `gorm:"column:monthly_price;not null" json:"monthlyPrice"`
	YearlyPrice  float64      `gorm:"column:yearly_price;not null" json:"yearlyPrice"`
	IsActive     bool         `gorm:"column:is_active;not null" json:"-"`
	IsPopular    bool         `gorm:"column:is_popular;not null" json:"isPopular"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// PlanFeature is a boolean capability attached to a plan.
type PlanFeature struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	PlanID    snowflake.ID `gorm:"column:plan_id;not null;index" json:"-"`
	Name      string       `gorm:"type:text;not null" json:"featureName"`
	IsEnabled bool         `gorm:"column:is_enabled;not null" json:"isEnabled"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PlanFeature) TableName() string { return "plan_features" }

// Subscription binds an organization to a plan. One row per
// organization; purchasing again replaces the active terms.
type Subscription struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"subscriptionId"`
	OrgID        snowflake.ID       `gorm:"column:org_id;not null;uniqueIndex:ux_subscriptions_org" json:"organizationId"`
	PlanID       snowflake.ID       `gorm:"column:plan_id;not null;index" json:"planId"`
	Status       SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	BillingCycle BillingCycle       `gorm:"column:billing_cycle;type:text;not null" json:"billingCycle"`
	Price        float64            `gorm:"not null" json:"price"`
	MemberCount  int                `gorm:"column:member_count;not null" json:"memberCount"`
	StartDate    time.Time          `gorm:"column:start_date;not null" json:"startDate"`
	EndDate      time.Time          `gorm:"column:end_date;not null" json:"endDate"`
	CreatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
