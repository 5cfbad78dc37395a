// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Token TokenConfig
	Guard GuardConfig
	Otp   OtpConfig
	Email EmailConfig

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RedisAddr     string
	RedisPassword string
}

// TokenConfig carries signing secrets and lifetimes per platform plus the
// global secret used for identity and handoff tokens.
type TokenConfig struct {
	GlobalSecret string

	WebsiteAccessSecret    string
	WebsiteRefreshSecret   string
	AppAccessSecret        string
	AppRefreshSecret       string
	ExtensionAccessSecret  string
	ExtensionRefreshSecret string

	WebsiteAccessTTL    time.Duration
	WebsiteRefreshTTL   time.Duration
	AppAccessTTL        time.Duration
	AppRefreshTTL       time.Duration
	ExtensionAccessTTL  time.Duration
	ExtensionRefreshTTL time.Duration

	IdentityTTL time.Duration
	HandoffTTL  time.Duration
}

// GuardConfig carries brute-force thresholds and block durations.
type GuardConfig struct {
	IPThreshold    int
	IPBlock        time.Duration
	EmailThreshold int
	EmailBlock     time.Duration
}

// OtpConfig carries one-time-passcode timing.
type OtpConfig struct {
	Expiry   time.Duration
	Cooldown time.Duration
}

// EmailConfig carries SMTP delivery settings.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "crewbase"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "crewbase"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Token: TokenConfig{
			GlobalSecret:           strings.TrimSpace(getenv("JWT_SECRET", "")),
			WebsiteAccessSecret:    strings.TrimSpace(getenv("WEB_ACCESS_SECRET", "")),
			WebsiteRefreshSecret:   strings.TrimSpace(getenv("WEB_REFRESH_SECRET", "")),
			AppAccessSecret:        strings.TrimSpace(getenv("APP_ACCESS_SECRET", "")),
			AppRefreshSecret:       strings.TrimSpace(getenv("APP_REFRESH_SECRET", "")),
			ExtensionAccessSecret:  strings.TrimSpace(getenv("EXTENSION_ACCESS_SECRET", "")),
			ExtensionRefreshSecret: strings.TrimSpace(getenv("EXTENSION_REFRESH_SECRET", "")),
			WebsiteAccessTTL:       getenvDuration("ACCESS_TOKEN_EXPIRY_WEBSITE", time.Hour),
			WebsiteRefreshTTL:      getenvDuration("REFRESH_TOKEN_EXPIRY_WEBSITE", 7*24*time.Hour),
			AppAccessTTL:           getenvDuration("ACCESS_TOKEN_EXPIRY_APP", 12*time.Hour),
			AppRefreshTTL:          getenvDuration("REFRESH_TOKEN_EXPIRY_APP", 30*24*time.Hour),
			ExtensionAccessTTL:     getenvDuration("ACCESS_TOKEN_EXPIRY_EXTENSION", 12*time.Hour),
			ExtensionRefreshTTL:    getenvDuration("REFRESH_TOKEN_EXPIRY_EXTENSION", 30*24*time.Hour),
			IdentityTTL:            getenvDuration("IDENTITY_TOKEN_EXPIRY", 30*time.Minute),
			HandoffTTL:             getenvDuration("HANDOFF_TOKEN_EXPIRY", 5*time.Minute),
		},
		Guard: GuardConfig{
			IPThreshold:    getenvInt("GUARD_IP_THRESHOLD", 10),
			IPBlock:        getenvDuration("GUARD_IP_BLOCK", 30*time.Minute),
			EmailThreshold: getenvInt("GUARD_EMAIL_THRESHOLD", 5),
			EmailBlock:     getenvDuration("GUARD_EMAIL_BLOCK", 60*time.Minute),
		},
		Otp: OtpConfig{
			Expiry:   getenvDuration("OTP_EXPIRY", 5*time.Minute),
			Cooldown: getenvDuration("OTP_COOLDOWN", 30*time.Second),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USER", ""),
			SMTPPassword: getenv("SMTP_PASS", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@crewbase.app"),
		},

		GoogleClientID:     strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
		GoogleRedirectURL:  strings.TrimSpace(getenv("GOOGLE_CALLBACK_URL", "")),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
