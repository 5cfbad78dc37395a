package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crewbase/crewbase/internal/subscription/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) FindPlanByID(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("monthly_price ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) CountPlans(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Plan{}).Count(&count).Error
	return count, err
}

func (r *repository) CreatePlanFeature(ctx context.Context, feature *domain.PlanFeature) error {
	return r.db.WithContext(ctx).Create(feature).Error
}

func (r *repository) ListPlanFeatures(ctx context.Context, planID snowflake.ID) ([]domain.PlanFeature, error) {
	var features []domain.PlanFeature
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at ASC").
		Find(&features).Error
	if err != nil {
		return nil, err
	}
	return features, nil
}

func (r *repository) FindSubscriptionByOrg(ctx context.Context, orgID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).Where("org_id = ?", orgID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "status", "billing_cycle", "price",
			"member_count", "start_date", "end_date", "updated_at",
		}),
	}).Create(sub).Error
}
