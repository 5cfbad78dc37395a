package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/googleauth"
	"github.com/crewbase/crewbase/internal/guard"
	iddomain "github.com/crewbase/crewbase/internal/identity/domain"
	idrepository "github.com/crewbase/crewbase/internal/identity/repository"
	idservice "github.com/crewbase/crewbase/internal/identity/service"
	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	orgrepository "github.com/crewbase/crewbase/internal/organization/repository"
	orgservice "github.com/crewbase/crewbase/internal/organization/service"
	"github.com/crewbase/crewbase/internal/providers/email"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
	subrepository "github.com/crewbase/crewbase/internal/subscription/repository"
	subservice "github.com/crewbase/crewbase/internal/subscription/service"
	"github.com/crewbase/crewbase/internal/token"
	"github.com/crewbase/crewbase/pkg/db"
)

const testPassword = "Sup3rS3cret!"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		Token: config.TokenConfig{
			GlobalSecret:           "global-secret",
			WebsiteAccessSecret:    "web-access-secret",
			WebsiteRefreshSecret:   "web-refresh-secret",
			AppAccessSecret:        "app-access-secret",
			AppRefreshSecret:       "app-refresh-secret",
			ExtensionAccessSecret:  "ext-access-secret",
			ExtensionRefreshSecret: "ext-refresh-secret",
			WebsiteAccessTTL:       15 * time.Minute,
			WebsiteRefreshTTL:      7 * 24 * time.Hour,
			AppAccessTTL:           15 * time.Minute,
			AppRefreshTTL:          30 * 24 * time.Hour,
			ExtensionAccessTTL:     15 * time.Minute,
			ExtensionRefreshTTL:    30 * 24 * time.Hour,
			IdentityTTL:            time.Hour,
			HandoffTTL:             2 * time.Minute,
		},
		Guard: config.GuardConfig{
			IPThreshold:    10,
			IPBlock:        30 * time.Minute,
			EmailThreshold: 5,
			EmailBlock:     time.Hour,
		},
		Otp: config.OtpConfig{
			Expiry:   5 * time.Minute,
			Cooldown: 30 * time.Second,
		},
	}
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (e envelope) object(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.Data, &m))
	return m
}

type testServer struct {
	srv     *Server
	engine  *gin.Engine
	idSvc   iddomain.Service
	orgSvc  orgdomain.Service
	subSvc  subdomain.Service
	orgRepo orgdomain.Repository
	guards  *guard.Guards
	issuer  *token.Issuer
	clk     *clock.FakeClock
	node    *snowflake.Node
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&iddomain.User{}, &iddomain.Otp{},
		&orgdomain.Organization{}, &orgdomain.Membership{},
		&orgdomain.Department{}, &orgdomain.DepartmentMember{},
		&subdomain.Plan{}, &subdomain.PlanFeature{}, &subdomain.Subscription{},
	))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := testConfig()

	orgRepo := orgrepository.NewRepository(conn)
	orgSvc := orgservice.NewService(log, conn, orgRepo, node, clk)
	subRepo := subrepository.NewRepository(conn)
	subSvc := subservice.NewService(log, subRepo, orgRepo, node, clk)
	issuer := token.NewIssuer(cfg, clk)
	guards := &guard.Guards{
		IP:    guard.New(guard.NewMemoryStore(time.Hour), cfg.Guard.IPThreshold, cfg.Guard.IPBlock, clk, log),
		Email: guard.New(guard.NewMemoryStore(time.Hour), cfg.Guard.EmailThreshold, cfg.Guard.EmailBlock, clk, log),
	}
	google := &googleauth.Fake{Codes: map[string]googleauth.Claims{}}
	idSvc := idservice.New(log, conn, idrepository.New(conn), orgRepo, orgSvc, subSvc,
		issuer, google, &email.NoOpProvider{}, guards, node, clk, cfg)

	engine := NewEngine(log, nil)
	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Issuer:      issuer,
		IdentitySvc: idSvc,
		OrgSvc:      orgSvc,
		OrgRepo:     orgRepo,
		SubSvc:      subSvc,
		Guards:      guards,
		GenID:       node,
		Clk:         clk,
	})

	return &testServer{
		srv:     srv,
		engine:  engine,
		idSvc:   idSvc,
		orgSvc:  orgSvc,
		subSvc:  subSvc,
		orgRepo: orgRepo,
		guards:  guards,
		issuer:  issuer,
		clk:     clk,
		node:    node,
		db:      conn,
	}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec.Code, resp
}

// onboard takes an identity through signup, profile, organization and
// plan purchase directly against the services.
func (ts *testServer) onboard(t *testing.T, addr string, features ...string) *iddomain.User {
	t.Helper()
	ctx := context.Background()

	issued, err := ts.idSvc.Signup(ctx, iddomain.SignupRequest{Email: addr, Password: testPassword})
	require.NoError(t, err)
	_, err = ts.idSvc.VerifyOtp(ctx, iddomain.VerifyOtpRequest{Email: addr, Code: issued.Otp})
	require.NoError(t, err)

	var user iddomain.User
	require.NoError(t, ts.db.Where("email = ?", addr).First(&user).Error)
	require.NoError(t, ts.idSvc.CompleteProfile(ctx, user.ID, iddomain.CompleteProfileRequest{
		FirstName:   "Ada",
		CountryCode: "+44",
		Phone:       "7700900001",
	}))

	org, err := ts.orgSvc.Register(ctx, user.ID, orgdomain.RegisterRequest{Name: "Acme Rockets", Country: "GB"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)

	now := ts.clk.Now()
	plan := subdomain.Plan{
		ID:           ts.node.Generate(),
		Name:         "Standard",
		PlanType:     subdomain.PlanTypeStandard,
		MonthlyPrice: 599,
		YearlyPrice:  479,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, ts.db.Create(&plan).Error)
	for _, feature := range features {
		require.NoError(t, ts.db.Create(&subdomain.PlanFeature{
			ID:        ts.node.Generate(),
			PlanID:    plan.ID,
			Name:      feature,
			IsEnabled: true,
			CreatedAt: now,
		}).Error)
	}

	_, err = ts.subSvc.Purchase(ctx, user.ID, subdomain.PurchaseRequest{
		OrganizationID: orgID,
		PlanID:         plan.ID,
		BillingCycle:   subdomain.BillingCycleMonthly,
		MemberCount:    2,
	})
	require.NoError(t, err)
	return &user
}

func (ts *testServer) loginApp(t *testing.T, addr string) (accessToken, refreshToken string) {
	t.Helper()
	status, resp := ts.do(t, http.MethodPost, "/auth/app/login", "", gin.H{
		"email":    addr,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "LOGIN_SUCCESSFULLY", resp.Message)
	data := resp.object(t)
	return data["accessToken"].(string), data["refreshToken"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSignupAndVerifyOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"email":    "ada@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, resp.Success)
	assert.Equal(t, "USER_CREATED_SUCCESSFULLY", resp.Message)
	otp := resp.object(t)["otp"].(string)
	require.Len(t, otp, 6)

	status, resp = ts.do(t, http.MethodPost, "/auth/verify-otp", "", gin.H{
		"email": "ada@example.com",
		"otp":   otp,
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "OTP_VERIFIED_SUCCESSFULLY", resp.Message)
	identityToken := resp.object(t)["token"].(string)
	require.NotEmpty(t, identityToken)

	// The profile step is still open, so verify-token interrupts with a
	// fresh resume token.
	status, resp = ts.do(t, http.MethodGet, "/auth/verify-token", identityToken, nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "INCOMPLETE_PROFILE", resp.Message)
	assert.NotEmpty(t, resp.object(t)["token"])
}

func TestSignupDuplicateEmailEnvelope(t *testing.T) {
	ts := newTestServer(t)

	body := gin.H{"email": "ada@example.com", "password": testPassword}
	status, _ := ts.do(t, http.MethodPost, "/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, status)

	status, resp := ts.do(t, http.MethodPost, "/auth/signup", "", body)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", resp.Message)
}

func TestSignupConflictsBlockEmailOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	body := gin.H{"email": "ada@example.com", "password": testPassword}
	status, _ := ts.do(t, http.MethodPost, "/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, status)

	for i := 0; i < 5; i++ {
		status, resp := ts.do(t, http.MethodPost, "/auth/signup", "", body)
		require.Equal(t, http.StatusPaymentRequired, status)
		require.Equal(t, "EMAIL_ALREADY_EXISTS", resp.Message)
	}

	// The fifth conflict installs the email block; the next attempt
	// never reaches the service.
	status, resp := ts.do(t, http.MethodPost, "/auth/signup", "", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMAIL_BLOCKED", resp.Message)
}

func TestVerifyTokenWalksOnboardingLadder(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	issued, err := ts.idSvc.Signup(ctx, iddomain.SignupRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	verified, err := ts.idSvc.VerifyOtp(ctx, iddomain.VerifyOtpRequest{Email: "ada@example.com", Code: issued.Otp})
	require.NoError(t, err)

	var user iddomain.User
	require.NoError(t, ts.db.Where("email = ?", "ada@example.com").First(&user).Error)
	require.NoError(t, ts.idSvc.CompleteProfile(ctx, user.ID, iddomain.CompleteProfileRequest{
		FirstName:   "Ada",
		CountryCode: "+44",
		Phone:       "7700900001",
	}))

	// Profile done but no organization yet.
	status, resp := ts.do(t, http.MethodGet, "/auth/verify-token", verified.Token, nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "USER_NOT_ASSOCIATED_WITH_ANY_ORGANIZATION", resp.Message)
	assert.NotEmpty(t, resp.object(t)["token"])

	org, err := ts.orgSvc.Register(ctx, user.ID, orgdomain.RegisterRequest{Name: "Acme Rockets", Country: "GB"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)

	// Organization exists but the owner holds no subscription.
	status, resp = ts.do(t, http.MethodGet, "/auth/verify-token", verified.Token, nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "USER_NOT_TAKEN_ANY_PLAN", resp.Message)
	assert.NotEmpty(t, resp.object(t)["token"])

	now := ts.clk.Now()
	plan := subdomain.Plan{
		ID:           ts.node.Generate(),
		Name:         "Standard",
		PlanType:     subdomain.PlanTypeStandard,
		MonthlyPrice: 599,
		YearlyPrice:  479,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, ts.db.Create(&plan).Error)
	_, err = ts.subSvc.Purchase(ctx, user.ID, subdomain.PurchaseRequest{
		OrganizationID: orgID,
		PlanID:         plan.ID,
		BillingCycle:   subdomain.BillingCycleMonthly,
		MemberCount:    2,
	})
	require.NoError(t, err)

	status, resp = ts.do(t, http.MethodGet, "/auth/verify-token", verified.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TOKEN_VERIFIED", resp.Message)

	// A cancelled subscription interrupts the ladder again.
	require.NoError(t, ts.db.Model(&subdomain.Subscription{}).
		Where("org_id = ?", orgID).
		Update("status", subdomain.SubscriptionStatusCancelled).Error)

	status, resp = ts.do(t, http.MethodGet, "/auth/verify-token", verified.Token, nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "USER_PLAN_DEACTIVATED", resp.Message)
	assert.NotEmpty(t, resp.object(t)["token"])
}

func TestForgotPasswordUsesResetContent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	issued, err := ts.idSvc.Signup(ctx, iddomain.SignupRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	_, err = ts.idSvc.VerifyOtp(ctx, iddomain.VerifyOtpRequest{Email: "ada@example.com", Code: issued.Otp})
	require.NoError(t, err)

	status, resp := ts.do(t, http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "FORGOT_PASSWORD_OTP_SENT_SUCCESSFULLY", resp.Message)
	otp := resp.object(t)["otp"].(string)

	// A reset-flow code verifies with 205 so the client routes to the
	// new-password screen instead of onboarding.
	status, resp = ts.do(t, http.MethodPost, "/auth/verify-otp", "", gin.H{
		"email": "ada@example.com",
		"otp":   otp,
	})
	require.Equal(t, http.StatusResetContent, status)
	identityToken := resp.object(t)["token"].(string)

	status, resp = ts.do(t, http.MethodPost, "/auth/reset-password", identityToken, gin.H{
		"password": "An0ther$ecret",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PASSWORD_RESET_SUCCESSFULLY", resp.Message)
}

func TestLoginInterruptedEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	issued, err := ts.idSvc.Signup(ctx, iddomain.SignupRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	_, err = ts.idSvc.VerifyOtp(ctx, iddomain.VerifyOtpRequest{Email: "ada@example.com", Code: issued.Otp})
	require.NoError(t, err)

	status, resp := ts.do(t, http.MethodPost, "/auth/app/login", "", gin.H{
		"email":    "ada@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "INCOMPLETE_PROFILE", resp.Message)
	assert.NotEmpty(t, resp.object(t)["token"])
}

func TestLoginValidationError(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, http.MethodPost, "/auth/app/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", resp.Message)
}

func TestAuthRequiredGate(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, http.MethodGet, "/get-profile-detail", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_REQUIRED", resp.Message)

	status, resp = ts.do(t, http.MethodGet, "/get-profile-detail", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN_STRUCTURE", resp.Message)

	// An identity token has no platform claim and cannot pass.
	user := ts.onboard(t, "ada@example.com")
	identityToken, err := ts.issuer.IssueIdentity(user.ID.String())
	require.NoError(t, err)
	status, resp = ts.do(t, http.MethodGet, "/get-profile-detail", identityToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN_STRUCTURE", resp.Message)

	access, _ := ts.loginApp(t, "ada@example.com")
	status, resp = ts.do(t, http.MethodGet, "/get-profile-detail", access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PROFILE_DETAIL", resp.Message)
	assert.Equal(t, "ada@example.com", resp.object(t)["email"])
}

func TestAuthRequiredRevokesOldTokenOnRelogin(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")
	oldAccess, _ := ts.loginApp(t, "ada@example.com")

	// A second login rotates the stored nonce on the same platform.
	newAccess, _ := ts.loginApp(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodGet, "/get-profile-detail", oldAccess, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "ACCESS_TOKEN_NONCE_MISMATCH", resp.Message)

	status, _ = ts.do(t, http.MethodGet, "/get-profile-detail", newAccess, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthRequiredExpiredToken(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")
	access, _ := ts.loginApp(t, "ada@example.com")

	ts.clk.Advance(16 * time.Minute)
	status, resp := ts.do(t, http.MethodGet, "/get-profile-detail", access, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_EXPIRED", resp.Message)
}

func TestEmailGuardBlocksLogin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ts.guards.Email.Fail(ctx, "ada@example.com"))
	}

	status, resp := ts.do(t, http.MethodPost, "/auth/app/login", "", gin.H{
		"email":    "Ada@Example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMAIL_BLOCKED", resp.Message)
	data := resp.object(t)
	assert.Equal(t, "60 minutes", data["remainingTime"])
}

func TestNameCheckEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodGet, "/organization-name-check?organizationName=Acme%20Rockets", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ORGANIZATION_NAME_UNAVAILABLE", resp.Message)
	assert.Equal(t, false, resp.object(t)["isAvailable"])

	status, resp = ts.do(t, http.MethodGet, "/organization-name-check?organizationName=Fresh%20Venture", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ORGANIZATION_NAME_AVAILABLE", resp.Message)
	assert.Equal(t, true, resp.object(t)["isAvailable"])

	status, resp = ts.do(t, http.MethodGet, "/subdomain-name-check?subdomain=acme-rockets", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SUBDOMAIN_UNAVAILABLE", resp.Message)

	status, resp = ts.do(t, http.MethodGet, "/subdomain-name-check", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", resp.Message)
}

func TestDepartmentFeatureGate(t *testing.T) {
	ts := newTestServer(t)

	// Plan without the department feature switch.
	ts.onboard(t, "ada@example.com")
	access, _ := ts.loginApp(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodPost, "/department/create-department", access, gin.H{
		"departmentName": "Engineering",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FEATURE_NOT_AVAILABLE_IN_CURRENT_PLAN", resp.Message)
}

func TestDepartmentRoutes(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com", featureDepartments)
	access, _ := ts.loginApp(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodPost, "/department/create-department", access, gin.H{
		"departmentName":        "Engineering",
		"departmentDescription": "Builds the product",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "DEPARTMENT_CREATED_SUCCESSFULLY", resp.Message)
	deptID := resp.object(t)["departmentId"].(string)

	status, resp = ts.do(t, http.MethodGet, "/department/get-departments", access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DEPARTMENTS_FETCHED_SUCCESSFULLY", resp.Message)
	var depts []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &depts))
	assert.Len(t, depts, 2)

	status, resp = ts.do(t, http.MethodPut, "/department/update-department", access, gin.H{
		"departmentId":   deptID,
		"departmentName": "Platform Engineering",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DEPARTMENT_UPDATED_SUCCESSFULLY", resp.Message)

	status, resp = ts.do(t, http.MethodPut, "/department/update-department", access, gin.H{
		"departmentId":   "not-a-snowflake",
		"departmentName": "Anything",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DEPARTMENT_NOT_FOUND", resp.Message)
}

func TestSubscriptionExpiredGate(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")
	access, _ := ts.loginApp(t, "ada@example.com")

	require.NoError(t, ts.db.Model(&subdomain.Subscription{}).
		Where("1 = 1").
		Update("end_date", ts.clk.Now().Add(-time.Hour)).Error)

	status, resp := ts.do(t, http.MethodGet, "/get-profile-detail", access, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SUBSCRIPTION_HAS_EXPIRED", resp.Message)
}

func TestWebsiteLoginHandoffOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodPost, "/auth/crm/login", "", gin.H{
		"email":    "ada@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "LOGIN_SUCCESSFULLY", resp.Message)
	handoff := resp.object(t)["token"].(string)
	require.NotEmpty(t, handoff)

	status, resp = ts.do(t, http.MethodPost, "/auth/crm/verify-subdomain-token", "", gin.H{"token": handoff})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "SUBDOMAIN_TOKEN_VERIFIED", resp.Message)
	data := resp.object(t)
	assert.NotEmpty(t, data["accessToken"])
	assert.NotEmpty(t, data["refreshToken"])

	// The handoff token is single-use.
	status, resp = ts.do(t, http.MethodPost, "/auth/crm/verify-subdomain-token", "", gin.H{"token": handoff})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_INVALID", resp.Message)
}

func TestRefreshTokenEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.onboard(t, "ada@example.com")
	oldAccess, refresh := ts.loginApp(t, "ada@example.com")

	status, resp := ts.do(t, http.MethodPost, "/auth/app/refresh-token", "", gin.H{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "TOKEN_REFRESHED", resp.Message)
	newAccess := resp.object(t)["accessToken"].(string)
	require.NotEmpty(t, newAccess)

	// The refresh rotated the stored nonce, retiring the old access token.
	status, resp = ts.do(t, http.MethodGet, "/get-profile-detail", oldAccess, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "ACCESS_TOKEN_NONCE_MISMATCH", resp.Message)

	status, _ = ts.do(t, http.MethodGet, "/get-profile-detail", newAccess, nil)
	assert.Equal(t, http.StatusOK, status)

	// A refresh token presented on the wrong platform path is rejected.
	status, resp = ts.do(t, http.MethodPost, "/auth/extension/refresh-token", "", gin.H{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", resp.Message)
}

func TestPlanRoutes(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	issued, err := ts.idSvc.Signup(ctx, iddomain.SignupRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	result, err := ts.idSvc.VerifyOtp(ctx, iddomain.VerifyOtpRequest{Email: "ada@example.com", Code: issued.Otp})
	require.NoError(t, err)

	now := ts.clk.Now()
	plan := subdomain.Plan{
		ID:           ts.node.Generate(),
		Name:         "Standard",
		PlanType:     subdomain.PlanTypeStandard,
		MonthlyPrice: 599,
		YearlyPrice:  479,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, ts.db.Create(&plan).Error)

	status, resp := ts.do(t, http.MethodGet, "/auth/get-plan-detail", result.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "PLAN_DETAIL", resp.Message)
	var plans []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "Standard", plans[0]["planName"])
}
