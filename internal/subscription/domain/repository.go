package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	CreatePlan(ctx context.Context, plan *Plan) error
	FindPlanByID(ctx context.Context, id snowflake.ID) (*Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	CountPlans(ctx context.Context) (int64, error)

	CreatePlanFeature(ctx context.Context, feature *PlanFeature) error
	ListPlanFeatures(ctx context.Context, planID snowflake.ID) ([]PlanFeature, error)

	FindSubscriptionByOrg(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
	SaveSubscription(ctx context.Context, sub *Subscription) error
}
