package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/googleauth"
	"github.com/crewbase/crewbase/internal/guard"
	"github.com/crewbase/crewbase/internal/identity"
	iddomain "github.com/crewbase/crewbase/internal/identity/domain"
	"github.com/crewbase/crewbase/internal/organization"
	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	"github.com/crewbase/crewbase/internal/platform"
	"github.com/crewbase/crewbase/internal/providers/email"
	"github.com/crewbase/crewbase/internal/subscription"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
	"github.com/crewbase/crewbase/internal/token"
	"github.com/crewbase/crewbase/pkg/log/ctxlogger"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(registerGin),
	token.Module,
	guard.Module,
	googleauth.Module,
	email.Module,
	identity.Module,
	organization.Module,
	subscription.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationMiddleware())
	r.Use(requestLogger(log.Named("http")))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	return NewEngine(log, metrics)
}

const correlationHeader = "X-Correlation-ID"

// correlationMiddleware threads a correlation ID through the request
// context and echoes it back to the caller.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxlogger.ContextWithCorrelationID(c.Request.Context(), c.GetHeader(correlationHeader))
		ctx, cid := ctxlogger.EnsureCorrelationID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(correlationHeader, cid)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if p, ok := platformFrom(c); ok {
			fields = append(fields, zap.String("platform", string(p)))
		}
		ctxlogger.WithContext(c.Request.Context(), log).Info("request", fields...)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	issuer      *token.Issuer
	identitySvc iddomain.Service
	orgSvc      orgdomain.Service
	orgRepo     orgdomain.Repository
	subSvc      subdomain.Service
	guards      *guard.Guards
	genID       *snowflake.Node
	clk         clock.Clock
	metrics     *HTTPMetrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Issuer      *token.Issuer
	IdentitySvc iddomain.Service
	OrgSvc      orgdomain.Service
	OrgRepo     orgdomain.Repository
	SubSvc      subdomain.Service
	Guards      *guard.Guards
	GenID       *snowflake.Node
	Clk         clock.Clock
	Metrics     *HTTPMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		issuer:      p.Issuer,
		identitySvc: p.IdentitySvc,
		orgSvc:      p.OrgSvc,
		orgRepo:     p.OrgRepo,
		subSvc:      p.SubSvc,
		guards:      p.Guards,
		genID:       p.GenID,
		clk:         p.Clk,
		metrics:     p.Metrics,
	}

	svc.registerAuthRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// The department management feature flag as seeded with the plans.
const featureDepartments = "Create and Manage Departments Easily"

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	// -------- Signup & OTP --------
	auth.POST("/signup", s.IPGuard(), s.EmailGuard(), s.Signup)
	auth.POST("/verify-otp", s.IPGuard(), s.EmailGuard(), s.VerifyOtp)
	auth.POST("/resend-otp", s.IPGuard(), s.EmailGuard(), s.ResendOtp)
	auth.GET("/verify-token", s.IdentityTokenRequired(), s.VerifyToken)
	auth.POST("/complete-profile", s.IdentityTokenRequired(), s.CompleteProfile)

	// -------- Password reset --------
	auth.POST("/forgot-password", s.IPGuard(), s.EmailGuard(), s.ForgotPassword)
	auth.POST("/reset-password", s.IdentityTokenRequired(), s.ResetPassword)

	// -------- Login, per platform --------
	auth.POST("/crm/login", s.IPGuard(), s.EmailGuard(), s.Login(platform.Website))
	auth.POST("/app/login", s.IPGuard(), s.EmailGuard(), s.Login(platform.App))
	auth.POST("/extension/login", s.IPGuard(), s.EmailGuard(), s.Login(platform.Extension))
	auth.POST("/google/crm/login", s.IPGuard(), s.GoogleLogin(platform.Website))
	auth.POST("/google/app/login", s.IPGuard(), s.GoogleLogin(platform.App))

	// -------- Token lifecycle --------
	auth.POST("/crm/verify-subdomain-token", s.RedeemHandoff)
	auth.POST("/crm/refresh-token", s.Refresh(platform.Website))
	auth.POST("/app/refresh-token", s.Refresh(platform.App))
	auth.POST("/extension/refresh-token", s.Refresh(platform.Extension))

	// -------- Organization onboarding --------
	auth.POST("/register-organization", s.IdentityTokenRequired(), s.RegisterOrganization)

	// -------- Plans --------
	auth.GET("/get-plan-detail", s.IdentityTokenRequired(), s.GetPlanDetail)
	auth.POST("/purchase-plan", s.IdentityTokenRequired(), s.PurchasePlan)

	// -------- Authenticated resource routes --------
	root := s.engine.Group("/")

	root.GET("/organization-name-check", s.OrganizationNameCheck)
	root.GET("/subdomain-name-check", s.SubdomainNameCheck)

	root.GET("/get-profile-detail", s.AuthRequired(), s.SubscriptionRequired(), s.GetProfileDetail)
	root.PUT("/edit-profile-detail", s.AuthRequired(), s.SubscriptionRequired(), s.EditProfileDetail)
	root.GET("/get-organization-detail", s.AuthRequired(), s.SubscriptionRequired(), s.GetOrganizationDetail)
	root.PUT("/edit-organization", s.AuthRequired(), s.SubscriptionRequired(), s.EditOrganization)

	dept := s.engine.Group("/department", s.AuthRequired(), s.SubscriptionRequired(featureDepartments))
	dept.POST("/create-department", s.CreateDepartment)
	dept.GET("/get-departments", s.GetDepartments)
	dept.PUT("/update-department", s.UpdateDepartment)
}
