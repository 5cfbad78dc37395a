package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/platform"
)

const (
	maxSubdomainLen      = 20
	maxSubdomainAttempts = 10

	defaultDepartmentName = "General"
)

var nameRe = regexp.MustCompile(`^[A-Za-z]+( [A-Za-z]+)*$`)

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clk   clock.Clock
}

func NewService(log *zap.Logger, db *gorm.DB, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		log:   log.Named("organization.service"),
		db:    db,
		repo:  repo,
		genID: genID,
		clk:   clk,
	}
}

func (s *service) Register(ctx context.Context, identityID snowflake.ID, req domain.RegisterRequest) (*domain.OrganizationDetail, error) {
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 50 || !nameRe.MatchString(name) {
		return nil, domain.ErrInvalidName
	}

	if _, err := s.repo.FindOwnedMembership(ctx, identityID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrMembershipNotFound) {
		return nil, err
	}

	taken, err := s.repo.NameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrNameTaken
	}

	subdomain, err := s.freeSubdomain(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	org := &domain.Organization{
		ID:              s.genID.Generate(),
		Name:            name,
		Subdomain:       subdomain,
		CountryCode:     strings.TrimSpace(req.Country),
		DepartmentLimit: domain.DefaultDepartmentLimit,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := &domain.Membership{
			ID:         s.genID.Generate(),
			OrgID:      org.ID,
			IdentityID: identityID,
			Role:       domain.RoleOwner,
			IsDefault:  true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.CreateMembership(ctx, member); err != nil {
			return err
		}

		dept := &domain.Department{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			Name:      defaultDepartmentName,
			CreatedBy: identityID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateDepartment(ctx, dept); err != nil {
			return err
		}

		return repo.CreateDepartmentMember(ctx, &domain.DepartmentMember{
			ID:           s.genID.Generate(),
			DepartmentID: dept.ID,
			MembershipID: member.ID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization registered",
		zap.String("organization_id", org.ID.String()),
		zap.String("subdomain", org.Subdomain),
	)

	return detailOf(org), nil
}

// freeSubdomain slugs the organization name, caps it at 20 characters
// and retries with a random 3-digit suffix until no row claims it.
func (s *service) freeSubdomain(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if len(base) > maxSubdomainLen {
		base = strings.Trim(base[:maxSubdomainLen], "-")
	}

	candidate := base
	for attempt := 0; attempt < maxSubdomainAttempts; attempt++ {
		taken, err := s.repo.SubdomainTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		stem := base
		if len(stem) > maxSubdomainLen-4 {
			stem = strings.Trim(stem[:maxSubdomainLen-4], "-")
		}
		candidate = fmt.Sprintf("%s-%03d", stem, rand.Intn(1000))
	}
	return "", domain.ErrSubdomainExhausted
}

func (s *service) NameAvailable(ctx context.Context, name string) (bool, error) {
	taken, err := s.repo.NameTaken(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *service) SubdomainAvailable(ctx context.Context, subdomain string) (bool, error) {
	taken, err := s.repo.SubdomainTaken(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *service) Detail(ctx context.Context, orgID snowflake.ID) (*domain.OrganizationDetail, error) {
	org, err := s.repo.FindOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return detailOf(org), nil
}

func (s *service) Edit(ctx context.Context, orgID snowflake.ID, req domain.EditRequest) (*domain.OrganizationDetail, error) {
	org, err := s.repo.FindOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.IsDeleted {
		return nil, domain.ErrNotFound
	}

	fields := map[string]any{"updated_at": s.clk.Now()}

	if name := strings.TrimSpace(req.Name); name != "" && !strings.EqualFold(name, org.Name) {
		if len(name) < 2 || len(name) > 50 || !nameRe.MatchString(name) {
			return nil, domain.ErrInvalidName
		}
		taken, err := s.repo.NameTaken(ctx, name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrNameTaken
		}
		fields["name"] = name
		org.Name = name
	}
	if country := strings.TrimSpace(req.Country); country != "" {
		fields["country_code"] = country
		org.CountryCode = country
	}
	if req.ImageURL != nil {
		fields["image_url"] = *req.ImageURL
		fields["image_key"] = req.ImageKey
		org.ImageURL = req.ImageURL
		org.ImageKey = req.ImageKey
	}

	if err := s.repo.UpdateOrganizationFields(ctx, orgID, fields); err != nil {
		return nil, err
	}
	return detailOf(org), nil
}

func (s *service) SetPairNonces(ctx context.Context, membershipID snowflake.ID, p platform.Platform, accessNonce, refreshNonce string) error {
	accessCol, err := domain.AccessNonceColumn(p)
	if err != nil {
		return err
	}
	refreshCol, err := domain.RefreshNonceColumn(p)
	if err != nil {
		return err
	}
	return s.repo.UpdateMembershipFields(ctx, membershipID, map[string]any{
		accessCol:    accessNonce,
		refreshCol:   refreshNonce,
		"updated_at": s.clk.Now(),
	})
}

func (s *service) SetAccessNonce(ctx context.Context, membershipID snowflake.ID, p platform.Platform, nonce string) error {
	accessCol, err := domain.AccessNonceColumn(p)
	if err != nil {
		return err
	}
	return s.repo.UpdateMembershipFields(ctx, membershipID, map[string]any{
		accessCol:    nonce,
		"updated_at": s.clk.Now(),
	})
}

// SetHandoffNonce stores a fresh handoff nonce and retires any live
// website access token in the same write.
func (s *service) SetHandoffNonce(ctx context.Context, membershipID snowflake.ID, nonce string) error {
	return s.repo.UpdateMembershipFields(ctx, membershipID, map[string]any{
		"handoff_nonce":        nonce,
		"access_nonce_website": nil,
		"updated_at":           s.clk.Now(),
	})
}

func (s *service) ClearHandoffNonce(ctx context.Context, membershipID snowflake.ID) error {
	return s.repo.UpdateMembershipFields(ctx, membershipID, map[string]any{
		"handoff_nonce": nil,
		"updated_at":    s.clk.Now(),
	})
}

func (s *service) CreateDepartment(ctx context.Context, identityID, orgID snowflake.ID, req domain.DepartmentRequest) (*domain.DepartmentResponse, error) {
	member, org, err := s.activeMembership(ctx, identityID, orgID)
	if err != nil {
		return nil, err
	}
	if member.Role == domain.RoleWorker {
		return nil, domain.ErrForbidden
	}

	count, err := s.repo.CountDepartments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if count >= int64(org.DepartmentLimit) {
		return nil, domain.ErrDepartmentLimit
	}

	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.FindDepartmentByName(ctx, orgID, name); err == nil {
		return nil, domain.ErrDepartmentExists
	} else if !errors.Is(err, domain.ErrDepartmentNotFound) {
		return nil, err
	}

	now := s.clk.Now()
	dept := &domain.Department{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   identityID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDepartment(ctx, dept); err != nil {
		return nil, err
	}
	return departmentOf(dept), nil
}

func (s *service) ListDepartments(ctx context.Context, orgID snowflake.ID) ([]domain.DepartmentResponse, error) {
	depts, err := s.repo.ListDepartments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.DepartmentResponse, 0, len(depts))
	for i := range depts {
		resp = append(resp, *departmentOf(&depts[i]))
	}
	return resp, nil
}

func (s *service) UpdateDepartment(ctx context.Context, identityID, orgID, departmentID snowflake.ID, req domain.UpdateDepartmentRequest) (*domain.DepartmentResponse, error) {
	member, _, err := s.activeMembership(ctx, identityID, orgID)
	if err != nil {
		return nil, err
	}
	if member.Role == domain.RoleWorker {
		return nil, domain.ErrForbidden
	}

	dept, err := s.repo.FindDepartmentByID(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if dept.OrgID != orgID {
		return nil, domain.ErrDepartmentNotFound
	}

	fields := map[string]any{"updated_at": s.clk.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !strings.EqualFold(name, dept.Name) {
			if _, err := s.repo.FindDepartmentByName(ctx, orgID, name); err == nil {
				return nil, domain.ErrDepartmentExists
			} else if !errors.Is(err, domain.ErrDepartmentNotFound) {
				return nil, err
			}
		}
		fields["name"] = name
		dept.Name = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
		dept.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.UpdateDepartmentFields(ctx, departmentID, fields); err != nil {
		return nil, err
	}
	return departmentOf(dept), nil
}

func (s *service) activeMembership(ctx context.Context, identityID, orgID snowflake.ID) (*domain.Membership, *domain.Organization, error) {
	member, err := s.repo.FindMembership(ctx, identityID, orgID)
	if err != nil {
		return nil, nil, err
	}
	org, err := s.repo.FindOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	if org.IsDeleted || !org.IsActive {
		return nil, nil, domain.ErrNotActive
	}
	return member, org, nil
}

func detailOf(org *domain.Organization) *domain.OrganizationDetail {
	return &domain.OrganizationDetail{
		ID:        org.ID.String(),
		Name:      org.Name,
		Subdomain: org.Subdomain,
		Country:   org.CountryCode,
		ImageURL:  org.ImageURL,
	}
}

func departmentOf(dept *domain.Department) *domain.DepartmentResponse {
	return &domain.DepartmentResponse{
		ID:          dept.ID.String(),
		Name:        dept.Name,
		Description: dept.Description,
	}
}
