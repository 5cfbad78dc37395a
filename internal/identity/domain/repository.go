package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error

	UpsertOtp(ctx context.Context, otp *Otp) error
	FindOtp(ctx context.Context, identityID snowflake.ID) (*Otp, error)
	DeleteOtp(ctx context.Context, identityID snowflake.ID) error
}
