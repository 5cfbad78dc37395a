package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crewbase/crewbase/internal/identity/domain"
	"github.com/crewbase/crewbase/pkg/db"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	// Concurrent signups can both pass the existence check; the unique
	// email index settles the race.
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_deleted = ?", email, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) UpsertOtp(ctx context.Context, otp *domain.Otp) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code_hash", "expires_at", "next_send_at",
		}),
	}).Create(otp).Error
}

func (r *repo) FindOtp(ctx context.Context, identityID snowflake.ID) (*domain.Otp, error) {
	var otp domain.Otp
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidOtp
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *repo) DeleteOtp(ctx context.Context, identityID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Delete(&domain.Otp{}).Error
}
