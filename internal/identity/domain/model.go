// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Status values for a user account.
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
)

// User represents a person who can authenticate. Email is unique among
// non-deleted rows and always stored lowercased.
type User struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Email           string       `gorm:"type:text;not null;uniqueIndex:ux_users_email"`
	Password        *string      `gorm:"type:text"`
	FirstName       *string      `gorm:"column:first_name;type:text"`
	LastName        *string      `gorm:"column:last_name;type:text"`
	CountryCode     *string      `gorm:"column:country_code;type:text"`
	Phone           *string      `gorm:"type:text"`
	Status          string       `gorm:"type:text;not null"`
	Provider        string       `gorm:"type:text;not null"`
	GoogleID        *string      `gorm:"column:google_id;type:text"`
	IsEmailVerified bool         `gorm:"column:is_email_verified;not null"`
	ResetPending    bool         `gorm:"column:reset_pending;not null"`
	IsDeleted       bool         `gorm:"column:is_deleted;not null"`
	ProfileImageURL *string      `gorm:"column:profile_image_url;type:text"`
	ProfileImageKey *string      `gorm:"column:profile_image_key;type:text"`
	LastLoginAt     *time.Time   `gorm:"column:last_login_at"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// ProfileComplete reports whether the onboarding profile step is done.
func (u *User) ProfileComplete() bool {
	return u.FirstName != nil && *u.FirstName != "" && u.Phone != nil && *u.Phone != ""
}

// Otp is the pending one-time passcode for a user. At most one row per
// user; reissuing overwrites it.
type Otp struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	IdentityID snowflake.ID `gorm:"column:identity_id;not null;uniqueIndex:ux_otps_identity"`
	CodeHash   string       `gorm:"column:code_hash;type:text;not null"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null"`
	NextSendAt time.Time    `gorm:"column:next_send_at;not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Otp) TableName() string { return "otps" }
