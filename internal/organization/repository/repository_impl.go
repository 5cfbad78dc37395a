package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	// Two registrations can slug onto the same free subdomain; the
	// unique index decides and the caller retries with a suffix.
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrSubdomainExhausted
		}
		return err
	}
	return nil
}

func (r *repository) FindOrganizationByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) NameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).
		Where("LOWER(name) = LOWER(?) AND is_deleted = ?", name, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).
		Where("subdomain = ?", subdomain).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateOrganizationFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) CreateMembership(ctx context.Context, member *domain.Membership) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) FindMembership(ctx context.Context, identityID, orgID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("identity_id = ? AND org_id = ?", identityID, orgID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindDefaultMembership(ctx context.Context, identityID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("identity_id = ? AND is_default = ?", identityID, true).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMemberships(ctx context.Context, identityID snowflake.ID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) FindOwnedMembership(ctx context.Context, identityID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("identity_id = ? AND role = ?", identityID, domain.RoleOwner).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdateMembershipFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Membership{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *repository) CreateDepartment(ctx context.Context, dept *domain.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *repository) FindDepartmentByID(ctx context.Context, id snowflake.ID) (*domain.Department, error) {
	var dept domain.Department
	err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&dept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *repository) FindDepartmentByName(ctx context.Context, orgID snowflake.ID, name string) (*domain.Department, error) {
	var dept domain.Department
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND LOWER(name) = LOWER(?) AND is_deleted = ?", orgID, name, false).
		First(&dept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *repository) ListDepartments(ctx context.Context, orgID snowflake.ID) ([]domain.Department, error) {
	var depts []domain.Department
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_deleted = ?", orgID, false).
		Order("created_at DESC").
		Find(&depts).Error
	if err != nil {
		return nil, err
	}
	return depts, nil
}

func (r *repository) CountDepartments(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Department{}).
		Where("org_id = ? AND is_deleted = ?", orgID, false).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateDepartmentFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Department{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrDepartmentNotFound
	}
	return nil
}

func (r *repository) CreateDepartmentMember(ctx context.Context, member *domain.DepartmentMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}
