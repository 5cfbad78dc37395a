package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *Organization) error
	FindOrganizationByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	NameTaken(ctx context.Context, name string) (bool, error)
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)
	UpdateOrganizationFields(ctx context.Context, id snowflake.ID, fields map[string]any) error

	CreateMembership(ctx context.Context, member *Membership) error
	FindMembership(ctx context.Context, identityID, orgID snowflake.ID) (*Membership, error)
	FindDefaultMembership(ctx context.Context, identityID snowflake.ID) (*Membership, error)
	ListMemberships(ctx context.Context, identityID snowflake.ID) ([]Membership, error)
	FindOwnedMembership(ctx context.Context, identityID snowflake.ID) (*Membership, error)
	UpdateMembershipFields(ctx context.Context, id snowflake.ID, fields map[string]any) error

	CreateDepartment(ctx context.Context, dept *Department) error
	FindDepartmentByID(ctx context.Context, id snowflake.ID) (*Department, error)
	FindDepartmentByName(ctx context.Context, orgID snowflake.ID, name string) (*Department, error)
	ListDepartments(ctx context.Context, orgID snowflake.ID) ([]Department, error)
	CountDepartments(ctx context.Context, orgID snowflake.ID) (int64, error)
	UpdateDepartmentFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	CreateDepartmentMember(ctx context.Context, member *DepartmentMember) error
}
