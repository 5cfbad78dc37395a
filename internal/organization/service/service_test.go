package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/organization/repository"
	"github.com/crewbase/crewbase/internal/platform"
	"github.com/crewbase/crewbase/pkg/db"
)

type fixture struct {
	svc  domain.Service
	repo domain.Repository
	clk  *clock.FakeClock
	node *snowflake.Node
	db   *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Organization{}, &domain.Membership{},
		&domain.Department{}, &domain.DepartmentMember{},
	))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(conn)
	svc := NewService(zap.NewNop(), conn, repo, node, clk)
	return &fixture{svc: svc, repo: repo, clk: clk, node: node, db: conn}
}

func (f *fixture) register(t *testing.T, identityID snowflake.ID, name string) (*domain.OrganizationDetail, snowflake.ID) {
	t.Helper()
	detail, err := f.svc.Register(context.Background(), identityID, domain.RegisterRequest{Name: name, Country: "GB"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(detail.ID)
	require.NoError(t, err)
	return detail, orgID
}

func (f *fixture) addMember(t *testing.T, orgID, identityID snowflake.ID, role string) *domain.Membership {
	t.Helper()
	now := f.clk.Now()
	member := &domain.Membership{
		ID:         f.node.Generate(),
		OrgID:      orgID,
		IdentityID: identityID,
		Role:       role,
		IsDefault:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.repo.CreateMembership(context.Background(), member))
	return member
}

func TestRegisterCreatesOwnerAndGeneralDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()

	detail, orgID := f.register(t, owner, "Acme Rockets")
	assert.Equal(t, "Acme Rockets", detail.Name)
	assert.Equal(t, "acme-rockets", detail.Subdomain)
	assert.Equal(t, "GB", detail.Country)

	member, err := f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, member.Role)
	assert.True(t, member.IsDefault)

	depts, err := f.svc.ListDepartments(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, "General", depts[0].Name)

	// The owner lands in the default department.
	var count int64
	require.NoError(t, f.db.Model(&domain.DepartmentMember{}).
		Where("membership_id = ?", member.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterRejectsSecondOrganization(t *testing.T) {
	f := newFixture(t)
	owner := f.node.Generate()
	f.register(t, owner, "Acme Rockets")

	_, err := f.svc.Register(context.Background(), owner, domain.RegisterRequest{Name: "Other Venture", Country: "GB"})
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestRegisterNameTakenCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.register(t, f.node.Generate(), "Acme Rockets")

	_, err := f.svc.Register(context.Background(), f.node.Generate(), domain.RegisterRequest{Name: "ACME rockets", Country: "GB"})
	require.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestRegisterNameValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"", "A", "Acme  Rockets", "Acme-Rockets", "Acme 42", strings.Repeat("A", 51)} {
		_, err := f.svc.Register(ctx, f.node.Generate(), domain.RegisterRequest{Name: name, Country: "GB"})
		require.ErrorIs(t, err, domain.ErrInvalidName, "name %q", name)
	}
}

func TestSubdomainCappedAtTwentyChars(t *testing.T) {
	f := newFixture(t)

	detail, _ := f.register(t, f.node.Generate(), "Intercontinental Logistics Group")
	assert.LessOrEqual(t, len(detail.Subdomain), 20)
	assert.Equal(t, "intercontinental-log", detail.Subdomain)
}

func TestSubdomainCollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Claim the bare slug so the next registration must disambiguate.
	now := f.clk.Now()
	require.NoError(t, f.repo.CreateOrganization(ctx, &domain.Organization{
		ID:              f.node.Generate(),
		Name:            "Placeholder",
		Subdomain:       "acme-rockets",
		DepartmentLimit: domain.DefaultDepartmentLimit,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	detail, _ := f.register(t, f.node.Generate(), "Acme Rockets")
	assert.NotEqual(t, "acme-rockets", detail.Subdomain)
	assert.True(t, strings.HasPrefix(detail.Subdomain, "acme-rockets-"))
	assert.LessOrEqual(t, len(detail.Subdomain), 20)
}

func TestNameAndSubdomainAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, f.node.Generate(), "Acme Rockets")

	available, err := f.svc.NameAvailable(ctx, "acme rockets")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.svc.NameAvailable(ctx, "Fresh Venture")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = f.svc.SubdomainAvailable(ctx, "ACME-ROCKETS")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.svc.SubdomainAvailable(ctx, "fresh-venture")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestEditOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, orgID := f.register(t, f.node.Generate(), "Acme Rockets")

	img := "https://cdn.example.com/logo.png"
	key := "logo.png"
	detail, err := f.svc.Edit(ctx, orgID, domain.EditRequest{
		Name:     "Acme Ventures",
		Country:  "US",
		ImageURL: &img,
		ImageKey: &key,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ventures", detail.Name)
	assert.Equal(t, "US", detail.Country)
	require.NotNil(t, detail.ImageURL)
	assert.Equal(t, img, *detail.ImageURL)

	// The subdomain never changes after registration.
	fetched, err := f.svc.Detail(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "acme-rockets", fetched.Subdomain)
	assert.Equal(t, "Acme Ventures", fetched.Name)
}

func TestEditRejectsTakenName(t *testing.T) {
	f := newFixture(t)
	f.register(t, f.node.Generate(), "Acme Rockets")
	_, orgID := f.register(t, f.node.Generate(), "Fresh Venture")

	_, err := f.svc.Edit(context.Background(), orgID, domain.EditRequest{Name: "acme rockets"})
	require.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestEditKeepingOwnNameIsNoop(t *testing.T) {
	f := newFixture(t)
	_, orgID := f.register(t, f.node.Generate(), "Acme Rockets")

	detail, err := f.svc.Edit(context.Background(), orgID, domain.EditRequest{Name: "ACME Rockets", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Rockets", detail.Name)
	assert.Equal(t, "US", detail.Country)
}

func TestDetailHidesDeletedOrganization(t *testing.T) {
	f := newFixture(t)
	_, orgID := f.register(t, f.node.Generate(), "Acme Rockets")

	require.NoError(t, f.db.Model(&domain.Organization{}).Where("id = ?", orgID).
		Update("is_deleted", true).Error)

	_, err := f.svc.Detail(context.Background(), orgID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	dept, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{
		Name:        "  Engineering  ",
		Description: "Builds the product",
	})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept.Name)
	assert.Equal(t, "Builds the product", dept.Description)

	depts, err := f.svc.ListDepartments(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, depts, 2)
}

func TestCreateDepartmentForbiddenForWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, orgID := f.register(t, f.node.Generate(), "Acme Rockets")

	worker := f.node.Generate()
	f.addMember(t, orgID, worker, domain.RoleWorker)

	_, err := f.svc.CreateDepartment(ctx, worker, orgID, domain.DepartmentRequest{Name: "Engineering"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	// Managers may.
	manager := f.node.Generate()
	f.addMember(t, orgID, manager, domain.RoleManager)
	_, err = f.svc.CreateDepartment(ctx, manager, orgID, domain.DepartmentRequest{Name: "Engineering"})
	require.NoError(t, err)
}

func TestCreateDepartmentDuplicateNameCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	_, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{Name: "general"})
	require.ErrorIs(t, err, domain.ErrDepartmentExists)
}

func TestCreateDepartmentLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	// General occupies one slot; fill the remaining nine.
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India"} {
		_, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{Name: name})
		require.NoError(t, err)
	}

	_, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{Name: "Juliett"})
	require.ErrorIs(t, err, domain.ErrDepartmentLimit)
}

func TestCreateDepartmentInactiveOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	require.NoError(t, f.db.Model(&domain.Organization{}).Where("id = ?", orgID).
		Update("is_active", false).Error)

	_, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{Name: "Engineering"})
	require.ErrorIs(t, err, domain.ErrNotActive)
}

func TestUpdateDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	created, err := f.svc.CreateDepartment(ctx, owner, orgID, domain.DepartmentRequest{Name: "Engineering"})
	require.NoError(t, err)
	deptID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	name := "Platform Engineering"
	desc := "Runs the infrastructure"
	updated, err := f.svc.UpdateDepartment(ctx, owner, orgID, deptID, domain.UpdateDepartmentRequest{
		Name:        &name,
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineering", updated.Name)
	assert.Equal(t, "Runs the infrastructure", updated.Description)

	// Renaming onto an existing department is rejected.
	taken := "General"
	_, err = f.svc.UpdateDepartment(ctx, owner, orgID, deptID, domain.UpdateDepartmentRequest{Name: &taken})
	require.ErrorIs(t, err, domain.ErrDepartmentExists)

	// Recasing its own name is fine.
	recased := "PLATFORM engineering"
	updated, err = f.svc.UpdateDepartment(ctx, owner, orgID, deptID, domain.UpdateDepartmentRequest{Name: &recased})
	require.NoError(t, err)
	assert.Equal(t, "PLATFORM engineering", updated.Name)
}

func TestUpdateDepartmentWrongOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")

	otherOwner := f.node.Generate()
	_, otherOrgID := f.register(t, otherOwner, "Fresh Venture")
	created, err := f.svc.CreateDepartment(ctx, otherOwner, otherOrgID, domain.DepartmentRequest{Name: "Engineering"})
	require.NoError(t, err)
	deptID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	name := "Hijacked"
	_, err = f.svc.UpdateDepartment(ctx, owner, orgID, deptID, domain.UpdateDepartmentRequest{Name: &name})
	require.ErrorIs(t, err, domain.ErrDepartmentNotFound)
}

func TestSetPairNoncesPerPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")
	member, err := f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetPairNonces(ctx, member.ID, platform.App, "access-1", "refresh-1"))

	fresh, err := f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)
	require.NotNil(t, fresh.AccessNonceApp)
	assert.Equal(t, "access-1", *fresh.AccessNonceApp)
	require.NotNil(t, fresh.RefreshNonceApp)
	assert.Equal(t, "refresh-1", *fresh.RefreshNonceApp)
	assert.Nil(t, fresh.AccessNonceWebsite)
	assert.Nil(t, fresh.AccessNonceExtension)
}

func TestSetHandoffNonceRetiresWebsiteAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	_, orgID := f.register(t, owner, "Acme Rockets")
	member, err := f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetPairNonces(ctx, member.ID, platform.Website, "access-1", "refresh-1"))
	require.NoError(t, f.svc.SetHandoffNonce(ctx, member.ID, "handoff-1"))

	fresh, err := f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)
	require.NotNil(t, fresh.HandoffNonce)
	assert.Equal(t, "handoff-1", *fresh.HandoffNonce)
	assert.Nil(t, fresh.AccessNonceWebsite)
	// The refresh credential survives the handoff.
	require.NotNil(t, fresh.RefreshNonceWebsite)

	require.NoError(t, f.svc.ClearHandoffNonce(ctx, member.ID))
	fresh, err = f.repo.FindMembership(ctx, owner, orgID)
	require.NoError(t, err)
	assert.Nil(t, fresh.HandoffNonce)
}
