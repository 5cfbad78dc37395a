package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/clock"
	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/subscription/domain"
)

type service struct {
	log     *zap.Logger
	repo    domain.Repository
	orgRepo orgdomain.Repository
	genID   *snowflake.Node
	clk     clock.Clock
}

func NewService(log *zap.Logger, repo domain.Repository, orgRepo orgdomain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		log:     log.Named("subscription.service"),
		repo:    repo,
		orgRepo: orgRepo,
		genID:   genID,
		clk:     clk,
	}
}

func (s *service) ListPlans(ctx context.Context) ([]domain.PlanDetail, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]domain.PlanDetail, 0, len(plans))
	for _, plan := range plans {
		features, err := s.repo.ListPlanFeatures(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, domain.PlanDetail{Plan: plan, Features: features})
	}
	return details, nil
}

func (s *service) Purchase(ctx context.Context, identityID snowflake.ID, req domain.PurchaseRequest) (*domain.Subscription, error) {
	member, err := s.orgRepo.FindMembership(ctx, identityID, req.OrganizationID)
	if err != nil {
		return nil, domain.ErrNotOwner
	}
	if member.Role != orgdomain.RoleOwner {
		return nil, domain.ErrNotOwner
	}

	if req.MemberCount <= 0 {
		return nil, domain.ErrInvalidMemberCount
	}

	plan, err := s.repo.FindPlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}

	now := s.clk.Now()
	var price float64
	var end = now
	switch req.BillingCycle {
	case domain.BillingCycleMonthly:
		price = plan.MonthlyPrice
		end = now.AddDate(0, 1, 0)
	case domain.BillingCycleYearly:
		price = plan.YearlyPrice
		end = now.AddDate(1, 0, 0)
	default:
		return nil, domain.ErrInvalidBillingCycle
	}

	sub := &domain.Subscription{
		ID:           s.genID.Generate(),
		OrgID:        req.OrganizationID,
		PlanID:       plan.ID,
		Status:       domain.SubscriptionStatusActive,
		BillingCycle: req.BillingCycle,
		Price:        price * float64(req.MemberCount),
		MemberCount:  req.MemberCount,
		StartDate:    now,
		EndDate:      end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Info("plan purchased",
		zap.String("organization_id", req.OrganizationID.String()),
		zap.String("plan", plan.Name),
		zap.String("billing_cycle", string(req.BillingCycle)),
	)
	return sub, nil
}

func (s *service) Entitlement(ctx context.Context, orgID snowflake.ID) (*domain.Entitlement, error) {
	sub, err := s.repo.FindSubscriptionByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	features, err := s.repo.ListPlanFeatures(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Entitlement{Subscription: sub, Plan: plan, Features: features}, nil
}
