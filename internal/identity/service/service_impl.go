package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/googleauth"
	"github.com/crewbase/crewbase/internal/guard"
	"github.com/crewbase/crewbase/internal/identity/domain"
	"github.com/crewbase/crewbase/internal/identity/password"
	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/platform"
	"github.com/crewbase/crewbase/internal/providers/email"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
	"github.com/crewbase/crewbase/internal/token"
)

const minPasswordLength = 8

var passwordRe = regexp.MustCompile(`^[A-Za-z\d@$!%*?&#]{8,20}$`)

type Service struct {
	log    *zap.Logger
	db     *gorm.DB
	repo   domain.Repository
	orgRepo orgdomain.Repository
	orgSvc  orgdomain.Service
	subSvc  subdomain.Service
	issuer  *token.Issuer
	google  googleauth.Provider
	mailer  email.Provider
	guards  *guard.Guards
	genID   *snowflake.Node
	clk     clock.Clock
	otpCfg  config.OtpConfig
}

func New(log *zap.Logger, db *gorm.DB, repo domain.Repository, orgRepo orgdomain.Repository, orgSvc orgdomain.Service, subSvc subdomain.Service, issuer *token.Issuer, google googleauth.Provider, mailer email.Provider, guards *guard.Guards, genID *snowflake.Node, clk clock.Clock, cfg config.Config) domain.Service {
	return &Service{
		log:     log.Named("identity.service"),
		db:      db,
		repo:    repo,
		orgRepo: orgRepo,
		orgSvc:  orgSvc,
		subSvc:  subSvc,
		issuer:  issuer,
		google:  google,
		mailer:  mailer,
		guards:  guards,
		genID:   genID,
		clk:     clk,
		otpCfg:  cfg.Otp,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.OtpIssued, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}
	if !validPassword(req.Password) {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.repo.FindByEmail(ctx, addr); err == nil {
		// Enumerating taken addresses counts against both guards.
		s.trackFailure(ctx, req.IP, addr)
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	code, err := generateOtp()
	if err != nil {
		return nil, err
	}
	codeHash, err := password.Hash(code)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	user := &domain.User{
		ID:        s.genID.Generate(),
		Email:     addr,
		Password:  &hashed,
		Status:    domain.StatusActive,
		Provider:  domain.ProviderLocal,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		return repo.UpsertOtp(ctx, &domain.Otp{
			ID:         s.genID.Generate(),
			IdentityID: user.ID,
			CodeHash:   codeHash,
			ExpiresAt:  now.Add(s.otpCfg.Expiry),
			NextSendAt: now.Add(s.otpCfg.Cooldown),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOtp(ctx, addr, code); err != nil {
		s.log.Warn("otp mail delivery failed", zap.Error(err))
	}

	return &domain.OtpIssued{Email: addr, Otp: code}, nil
}

func (s *Service) VerifyOtp(ctx context.Context, req domain.VerifyOtpRequest) (*domain.VerifyOtpResult, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.trackFailure(ctx, req.IP, addr)
		}
		return nil, err
	}

	otp, err := s.repo.FindOtp(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOtp) {
			s.trackFailure(ctx, req.IP, addr)
		}
		return nil, err
	}
	if !password.Verify(req.Code, otp.CodeHash) {
		s.trackFailure(ctx, req.IP, addr)
		return nil, domain.ErrInvalidOtp
	}
	if s.clk.Now().After(otp.ExpiresAt) {
		return nil, domain.ErrOtpExpired
	}

	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"is_email_verified": true,
		"updated_at":        s.clk.Now(),
	}); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOtp(ctx, user.ID); err != nil {
		return nil, err
	}

	tok, err := s.issuer.IssueIdentity(user.ID.String())
	if err != nil {
		return nil, err
	}

	return &domain.VerifyOtpResult{
		Token:         tok,
		PasswordReset: user.ResetPending,
	}, nil
}

func (s *Service) ResendOtp(ctx context.Context, req domain.OtpRequest) error {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.trackFailure(ctx, req.IP, addr)
		}
		return err
	}

	if otp, err := s.repo.FindOtp(ctx, user.ID); err == nil {
		if s.clk.Now().Before(otp.NextSendAt) {
			s.trackFailure(ctx, req.IP, addr)
			return domain.ErrOtpCooldown
		}
	} else if !errors.Is(err, domain.ErrInvalidOtp) {
		return err
	}

	_, err = s.issueOtp(ctx, user)
	return err
}

func (s *Service) ForgotPassword(ctx context.Context, req domain.OtpRequest) (*domain.OtpIssued, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.trackFailure(ctx, req.IP, addr)
		}
		return nil, err
	}

	if otp, err := s.repo.FindOtp(ctx, user.ID); err == nil {
		if s.clk.Now().Before(otp.NextSendAt) {
			s.trackFailure(ctx, req.IP, addr)
			return nil, domain.ErrOtpCooldown
		}
	} else if !errors.Is(err, domain.ErrInvalidOtp) {
		return nil, err
	}

	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"reset_pending": true,
		"updated_at":    s.clk.Now(),
	}); err != nil {
		return nil, err
	}

	code, err := s.issueOtp(ctx, user)
	if err != nil {
		return nil, err
	}
	return &domain.OtpIssued{Email: addr, Otp: code}, nil
}

func (s *Service) ResetPassword(ctx context.Context, identityID snowflake.ID, pw string) error {
	user, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return err
	}
	if !user.ResetPending {
		return domain.ErrResetNotRequested
	}
	if !validPassword(pw) {
		return domain.ErrWeakPassword
	}

	hashed, err := password.Hash(pw)
	if err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"password":      hashed,
		"reset_pending": false,
		"updated_at":    s.clk.Now(),
	})
}

func (s *Service) CompleteProfile(ctx context.Context, identityID snowflake.ID, req domain.CompleteProfileRequest) error {
	user, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"first_name":   strings.TrimSpace(req.FirstName),
		"country_code": strings.TrimSpace(req.CountryCode),
		"phone":        strings.TrimSpace(req.Phone),
		"updated_at":   s.clk.Now(),
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	return s.repo.UpdateFields(ctx, user.ID, fields)
}

func (s *Service) Profile(ctx context.Context, identityID snowflake.ID) (*domain.ProfileDetail, error) {
	user, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

func (s *Service) EditProfile(ctx context.Context, identityID snowflake.ID, req domain.EditProfileRequest) (*domain.ProfileDetail, error) {
	user, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clk.Now()}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
		user.LastName = req.LastName
	}
	if req.ImageURL != nil {
		fields["profile_image_url"] = *req.ImageURL
		fields["profile_image_key"] = req.ImageKey
		user.ProfileImageURL = req.ImageURL
		user.ProfileImageKey = req.ImageKey
	}

	if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

// Gate enforces the onboarding ladder: verified profile, then an
// organization, then an active subscription on the owned organization.
// Interrupted steps surface as typed errors carrying a fresh identity
// token so the client can resume.
func (s *Service) Gate(ctx context.Context, identityID snowflake.ID) (*orgdomain.Membership, error) {
	user, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if !user.ProfileComplete() {
		tok, err := s.issuer.IssueIdentity(user.ID.String())
		if err != nil {
			return nil, err
		}
		return nil, &domain.IncompleteProfileError{Token: tok}
	}

	members, err := s.orgRepo.ListMemberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		tok, err := s.issuer.IssueIdentity(user.ID.String())
		if err != nil {
			return nil, err
		}
		return nil, &domain.NoOrganizationError{Token: tok}
	}

	member := defaultMembership(members)

	if member.Role == orgdomain.RoleOwner {
		ent, err := s.subSvc.Entitlement(ctx, member.OrgID)
		if errors.Is(err, subdomain.ErrNoSubscription) {
			tok, terr := s.issuer.IssueIdentity(user.ID.String())
			if terr != nil {
				return nil, terr
			}
			return nil, &domain.NoPlanError{Token: tok}
		}
		if err != nil {
			return nil, err
		}
		if ent.Subscription.Status != subdomain.SubscriptionStatusActive {
			tok, terr := s.issuer.IssueIdentity(user.ID.String())
			if terr != nil {
				return nil, terr
			}
			return nil, &domain.NoPlanError{Token: tok, Deactivated: true}
		}
		return member, nil
	}

	// Workers and managers ride on any org with a live subscription.
	for i := range members {
		ent, err := s.subSvc.Entitlement(ctx, members[i].OrgID)
		if errors.Is(err, subdomain.ErrNoSubscription) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ent.Subscription.Status == subdomain.SubscriptionStatusActive {
			return &members[i], nil
		}
	}

	tok, err := s.issuer.IssueIdentity(user.ID.String())
	if err != nil {
		return nil, err
	}
	return nil, &domain.NoPlanError{Token: tok}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest, p platform.Platform) (domain.LoginOutcome, error) {
	user, err := s.validateCredentials(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.finishLogin(ctx, user, p)
}

func (s *Service) GoogleLogin(ctx context.Context, req domain.GoogleLoginRequest, p platform.Platform) (domain.LoginOutcome, error) {
	claims, err := s.google.Exchange(ctx, req.Code)
	if err != nil {
		s.trackFailure(ctx, req.IP, "")
		return nil, err
	}

	addr, err := normalizeEmail(claims.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.createGoogleUser(ctx, addr, claims)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		fields := map[string]any{
			"is_email_verified": true,
			"updated_at":        s.clk.Now(),
		}
		if user.GoogleID == nil {
			fields["google_id"] = claims.Subject
			user.GoogleID = &claims.Subject
		}
		if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
	}

	switch user.Status {
	case domain.StatusInactive:
		return nil, domain.ErrDeactivated
	case domain.StatusSuspended:
		return nil, domain.ErrSuspended
	}

	return s.finishLogin(ctx, user, p)
}

func (s *Service) RedeemHandoff(ctx context.Context, rawToken string) (*domain.TokenPair, error) {
	claims, err := s.issuer.VerifyHandoff(rawToken)
	if err != nil {
		return nil, err
	}

	identityID, err := snowflake.ParseString(claims.IdentityID)
	if err != nil {
		return nil, domain.ErrHandoffInvalid
	}
	orgID, err := snowflake.ParseString(claims.OrganizationID)
	if err != nil {
		return nil, domain.ErrHandoffInvalid
	}

	member, err := s.orgRepo.FindMembership(ctx, identityID, orgID)
	if err != nil {
		return nil, domain.ErrHandoffInvalid
	}
	if member.HandoffNonce == nil || *member.HandoffNonce != claims.HandoffNonce {
		return nil, domain.ErrHandoffInvalid
	}

	pair, err := s.issuer.IssuePair(claims.IdentityID, claims.OrganizationID, platform.Website)
	if err != nil {
		return nil, err
	}

	// Single write: null the handoff nonce and install the pair, so a
	// replayed handoff token can never mint a second pair.
	if err := s.orgRepo.UpdateMembershipFields(ctx, member.ID, map[string]any{
		"handoff_nonce":         nil,
		"access_nonce_website":  pair.AccessNonce,
		"refresh_nonce_website": pair.RefreshNonce,
		"updated_at":            s.clk.Now(),
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, rawToken string, p platform.Platform) (string, error) {
	claims, err := s.issuer.VerifyRefresh(rawToken, p)
	if err != nil {
		return "", err
	}

	identityID, err := snowflake.ParseString(claims.IdentityID)
	if err != nil {
		return "", domain.ErrInvalidRefresh
	}
	orgID, err := snowflake.ParseString(claims.OrganizationID)
	if err != nil {
		return "", domain.ErrInvalidRefresh
	}

	if _, err := s.repo.FindByID(ctx, identityID); err != nil {
		return "", err
	}

	member, err := s.orgRepo.FindMembership(ctx, identityID, orgID)
	if err != nil {
		return "", domain.ErrInvalidRefresh
	}
	stored, err := member.RefreshNonce(p)
	if err != nil {
		return "", err
	}
	if stored == nil || *stored != claims.RefreshNonce {
		return "", domain.ErrInvalidRefresh
	}

	nonce := uuid.NewString()
	access, err := s.issuer.IssueAccess(claims.IdentityID, claims.OrganizationID, p, nonce)
	if err != nil {
		return "", err
	}
	if err := s.orgSvc.SetAccessNonce(ctx, member.ID, p, nonce); err != nil {
		return "", err
	}
	return access, nil
}

func (s *Service) Get(ctx context.Context, identityID snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, identityID)
}

func (s *Service) validateCredentials(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.trackFailure(ctx, req.IP, addr)
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}

	if !user.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	switch user.Status {
	case domain.StatusInactive:
		return nil, domain.ErrDeactivated
	case domain.StatusSuspended:
		return nil, domain.ErrSuspended
	}
	if user.Password == nil || !password.Verify(req.Password, *user.Password) {
		s.trackFailure(ctx, req.IP, addr)
		return nil, domain.ErrInvalidCredential
	}
	return user, nil
}

// finishLogin runs the onboarding gate, records the login and issues
// platform tokens: a handoff token for WEBSITE, a full pair otherwise.
func (s *Service) finishLogin(ctx context.Context, user *domain.User, p platform.Platform) (domain.LoginOutcome, error) {
	member, err := s.Gate(ctx, user.ID)
	if err != nil {
		var incomplete *domain.IncompleteProfileError
		if errors.As(err, &incomplete) {
			return domain.LoginNeedsProfile{Token: incomplete.Token}, nil
		}
		var noOrg *domain.NoOrganizationError
		if errors.As(err, &noOrg) {
			return domain.LoginNeedsOrganization{Token: noOrg.Token}, nil
		}
		var noPlan *domain.NoPlanError
		if errors.As(err, &noPlan) {
			return domain.LoginNeedsPlan{Token: noPlan.Token, Deactivated: noPlan.Deactivated}, nil
		}
		return nil, err
	}

	now := s.clk.Now()
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"last_login_at": now,
		"updated_at":    now,
	}); err != nil {
		return nil, err
	}

	if p == platform.Website {
		handoff, nonce, err := s.issuer.IssueHandoff(user.ID.String(), member.OrgID.String())
		if err != nil {
			return nil, err
		}
		if err := s.orgSvc.SetHandoffNonce(ctx, member.ID, nonce); err != nil {
			return nil, err
		}
		return domain.LoginHandoff{Token: handoff}, nil
	}

	pair, err := s.issuer.IssuePair(user.ID.String(), member.OrgID.String(), p)
	if err != nil {
		return nil, err
	}
	if err := s.orgSvc.SetPairNonces(ctx, member.ID, p, pair.AccessNonce, pair.RefreshNonce); err != nil {
		return nil, err
	}
	return domain.LoginComplete{Tokens: domain.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}}, nil
}

func (s *Service) createGoogleUser(ctx context.Context, addr string, claims googleauth.Claims) (*domain.User, error) {
	now := s.clk.Now()
	user := &domain.User{
		ID:              s.genID.Generate(),
		Email:           addr,
		Status:          domain.StatusActive,
		Provider:        domain.ProviderGoogle,
		GoogleID:        &claims.Subject,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if claims.GivenName != "" {
		user.FirstName = &claims.GivenName
	}
	if claims.FamilyName != "" {
		user.LastName = &claims.FamilyName
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issueOtp(ctx context.Context, user *domain.User) (string, error) {
	code, err := generateOtp()
	if err != nil {
		return "", err
	}
	codeHash, err := password.Hash(code)
	if err != nil {
		return "", err
	}

	now := s.clk.Now()
	if err := s.repo.UpsertOtp(ctx, &domain.Otp{
		ID:         s.genID.Generate(),
		IdentityID: user.ID,
		CodeHash:   codeHash,
		ExpiresAt:  now.Add(s.otpCfg.Expiry),
		NextSendAt: now.Add(s.otpCfg.Cooldown),
		CreatedAt:  now,
	}); err != nil {
		return "", err
	}

	if err := s.mailer.SendOtp(ctx, user.Email, code); err != nil {
		s.log.Warn("otp mail delivery failed", zap.Error(err))
	}
	return code, nil
}

func (s *Service) trackFailure(ctx context.Context, ip, email string) {
	if ip != "" {
		if err := s.guards.IP.Fail(ctx, ip); err != nil {
			s.log.Warn("ip guard write failed", zap.Error(err))
		}
	}
	if email != "" {
		if err := s.guards.Email.Fail(ctx, email); err != nil {
			s.log.Warn("email guard write failed", zap.Error(err))
		}
	}
}

func defaultMembership(members []orgdomain.Membership) *orgdomain.Membership {
	for i := range members {
		if members[i].IsDefault {
			return &members[i]
		}
	}
	return &members[0]
}

func profileOf(user *domain.User) *domain.ProfileDetail {
	return &domain.ProfileDetail{
		UserID:       user.ID.String(),
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: user.ProfileImageURL,
	}
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return "", fmt.Errorf("empty email")
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func validPassword(pw string) bool {
	if len(pw) < minPasswordLength || !passwordRe.MatchString(pw) {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
