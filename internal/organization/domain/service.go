package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	"github.com/crewbase/crewbase/internal/platform"
)

type Service interface {
	Register(ctx context.Context, identityID snowflake.ID, req RegisterRequest) (*OrganizationDetail, error)
	NameAvailable(ctx context.Context, name string) (bool, error)
	SubdomainAvailable(ctx context.Context, subdomain string) (bool, error)
	Detail(ctx context.Context, orgID snowflake.ID) (*OrganizationDetail, error)
	Edit(ctx context.Context, orgID snowflake.ID, req EditRequest) (*OrganizationDetail, error)

	SetPairNonces(ctx context.Context, membershipID snowflake.ID, p platform.Platform, accessNonce, refreshNonce string) error
	SetAccessNonce(ctx context.Context, membershipID snowflake.ID, p platform.Platform, nonce string) error
	SetHandoffNonce(ctx context.Context, membershipID snowflake.ID, nonce string) error
	ClearHandoffNonce(ctx context.Context, membershipID snowflake.ID) error

	CreateDepartment(ctx context.Context, identityID, orgID snowflake.ID, req DepartmentRequest) (*DepartmentResponse, error)
	ListDepartments(ctx context.Context, orgID snowflake.ID) ([]DepartmentResponse, error)
	UpdateDepartment(ctx context.Context, identityID, orgID, departmentID snowflake.ID, req UpdateDepartmentRequest) (*DepartmentResponse, error)
}

type RegisterRequest struct {
	Name    string
	Country string
}

type EditRequest struct {
	Name     string
	Country  string
	ImageURL *string
	ImageKey *string
}

type OrganizationDetail struct {
	ID        string  `json:"organizationId"`
	Name      string  `json:"organizationName"`
	Subdomain string  `json:"subdomain"`
	Country   string  `json:"country"`
	ImageURL  *string `json:"organizationImage"`
}

type DepartmentRequest struct {
	Name        string
	Description string
}

type UpdateDepartmentRequest struct {
	Name        *string
	Description *string
}

type DepartmentResponse struct {
	ID          string `json:"departmentId"`
	Name        string `json:"departmentName"`
	Description string `json:"departmentDescription"`
}
