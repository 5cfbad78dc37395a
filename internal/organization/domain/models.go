// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/crewbase/crewbase/internal/platform"
)

const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleWorker  = "WORKER"
)

// DefaultDepartmentLimit applies to organizations created without an
// explicit override.
const DefaultDepartmentLimit = 10

// Organization represents a tenant.
type Organization struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	Subdomain       string       `gorm:"type:varchar(20);not null;uniqueIndex:ux_organizations_subdomain" json:"subdomain"`
	CountryCode     string       `gorm:"column:country_code" json:"countryCode"`
	ImageURL        *string      `gorm:"column:image_url;type:text" json:"imageUrl"`
	ImageKey        *string      `gorm:"column:image_key;type:text" json:"-"`
	DepartmentLimit int          `gorm:"column:department_limit;not null" json:"-"`
	IsActive        bool         `gorm:"column:is_active;not null" json:"-"`
	IsDeleted       bool         `gorm:"column:is_deleted;not null" json:"-"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Membership links an identity to an organization and carries the
// per-platform token nonces. Exactly one access and one refresh nonce
// is live per platform; issuing a new token overwrites the stored
// value and retires every token minted before it.
type Membership struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"column:org_id;not null;index;uniqueIndex:ux_membership_org_identity,priority:1" json:"organizationId"`
	IdentityID snowflake.ID `gorm:"column:identity_id;not null;index;uniqueIndex:ux_membership_org_identity,priority:2" json:"identityId"`
	Role       string       `gorm:"type:text;not null" json:"role"`
	IsDefault  bool         `gorm:"column:is_default;not null" json:"-"`

	AccessNonceWebsite    *string `gorm:"column:access_nonce_website;type:text" json:"-"`
	RefreshNonceWebsite   *string `gorm:"column:refresh_nonce_website;type:text" json:"-"`
	AccessNonceApp        *string `gorm:"column:access_nonce_app;type:text" json:"-"`
	RefreshNonceApp       *string `gorm:"column:refresh_nonce_app;type:text" json:"-"`
	AccessNonceExtension  *string `gorm:"column:access_nonce_extension;type:text" json:"-"`
	RefreshNonceExtension *string `gorm:"column:refresh_nonce_extension;type:text" json:"-"`
	HandoffNonce          *string `gorm:"column:handoff_nonce;type:text" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

// AccessNonce returns the stored access nonce for the platform.
func (m *Membership) AccessNonce(p platform.Platform) (*string, error) {
	switch p {
	case platform.Website:
		return m.AccessNonceWebsite, nil
	case platform.App:
		return m.AccessNonceApp, nil
	case platform.Extension:
		return m.AccessNonceExtension, nil
	}
	return nil, platform.ErrInvalid
}

// RefreshNonce returns the stored refresh nonce for the platform.
func (m *Membership) RefreshNonce(p platform.Platform) (*string, error) {
	switch p {
	case platform.Website:
		return m.RefreshNonceWebsite, nil
	case platform.App:
		return m.RefreshNonceApp, nil
	case platform.Extension:
		return m.RefreshNonceExtension, nil
	}
	return nil, platform.ErrInvalid
}

// AccessNonceColumn maps a platform to its access nonce column.
func AccessNonceColumn(p platform.Platform) (string, error) {
	switch p {
	case platform.Website:
		return "access_nonce_website", nil
	case platform.App:
		return "access_nonce_app", nil
	case platform.Extension:
		return "access_nonce_extension", nil
	}
	return "", platform.ErrInvalid
}

// RefreshNonceColumn maps a platform to its refresh nonce column.
func RefreshNonceColumn(p platform.Platform) (string, error) {
	switch p {
	case platform.Website:
		return "refresh_nonce_website", nil
	case platform.App:
		return "refresh_nonce_app", nil
	case platform.Extension:
		return "refresh_nonce_extension", nil
	}
	return "", platform.ErrInvalid
}

// Department groups workers inside an organization.
type Department struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"column:org_id;not null;index" json:"organizationId"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"-"`
	IsDeleted   bool         `gorm:"column:is_deleted;not null" json:"-"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Department) TableName() string { return "departments" }

// DepartmentMember assigns a membership to a department.
type DepartmentMember struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	DepartmentID snowflake.ID `gorm:"column:department_id;not null;index;uniqueIndex:ux_department_member,priority:1" json:"departmentId"`
	MembershipID snowflake.ID `gorm:"column:membership_id;not null;index;uniqueIndex:ux_department_member,priority:2" json:"membershipId"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (DepartmentMember) TableName() string { return "department_members" }
