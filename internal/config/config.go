package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	DatabaseURL           string   `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL              string   `mapstructure:"REDIS_URL"`
	CacheTTL              int      `mapstructure:"CACHE_TTL_SECONDS"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSeconds int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	// Auth gate
	AuthBackend       string `mapstructure:"AUTH_BACKEND"`
	DevAuthBypass     bool   `mapstructure:"DEV_AUTH_BYPASS"`
	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword     string `mapstructure:"ADMIN_PASSWORD"`
	SessionSigningKey string `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTLHours   int    `mapstructure:"SESSION_TTL_HOURS"`

	// Notification dispatcher
	DispatchEnabled         bool   `mapstructure:"NOTIFY_DISPATCH_ENABLED"`
	DispatchIntervalSeconds int    `mapstructure:"NOTIFY_DISPATCH_INTERVAL_SECONDS"`
	DefaultPhoneRegion      string `mapstructure:"DEFAULT_PHONE_REGION"`
	SMTPHost                string `mapstructure:"SMTP_HOST"`
	SMTPPort                int    `mapstructure:"SMTP_PORT"`
	SMTPUsername            string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword            string `mapstructure:"SMTP_PASSWORD"`
	SMTPUseTLS              bool   `mapstructure:"SMTP_USE_TLS"`
	MailFrom                string `mapstructure:"MAIL_FROM"`
	SMSIRAPIKey             string `mapstructure:"SMSIR_API_KEY"`
	SMSIRSecretKey          string `mapstructure:"SMSIR_SECRET_KEY"`
	SMSIRTemplateID         string `mapstructure:"SMSIR_TEMPLATE_ID"`

	// Telemetry
	ServiceName  string `mapstructure:"SERVICE_NAME"`
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "CACHE_TTL_SECONDS", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT_SECONDS",
	"LOG_LEVEL", "LOG_FILE",
	"AUTH_BACKEND", "DEV_AUTH_BYPASS", "ADMIN_USERNAME", "ADMIN_PASSWORD", "SESSION_SIGNING_KEY", "SESSION_TTL_HOURS",
	"NOTIFY_DISPATCH_ENABLED", "NOTIFY_DISPATCH_INTERVAL_SECONDS", "DEFAULT_PHONE_REGION",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_USE_TLS", "MAIL_FROM",
	"SMSIR_API_KEY", "SMSIR_SECRET_KEY", "SMSIR_TEMPLATE_ID",
	"SERVICE_NAME", "OTLP_ENDPOINT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8080")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_BACKEND", "static")
	v.SetDefault("DEV_AUTH_BYPASS", false)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "doctor12/")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("NOTIFY_DISPATCH_ENABLED", false)
	v.SetDefault("NOTIFY_DISPATCH_INTERVAL_SECONDS", 60)
	v.SetDefault("DEFAULT_PHONE_REGION", "US")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USE_TLS", true)
	v.SetDefault("SERVICE_NAME", "followup")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
	}
	if cfg.DevAuthBypass {
		log.Println("WARNING: DEV_AUTH_BYPASS is on; every request without a session is treated as the admin user.")
	}

	return cfg, nil
}

// AuthBypassed reports whether unauthenticated requests get the dev identity.
// It needs both development mode and DEV_AUTH_BYPASS.
func (c *Config) AuthBypassed() bool {
	return c.IsDev() && c.DevAuthBypass
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionTTL returns the lifetime of an admin session.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// CacheTTLDuration returns how long a cached collection stays valid without
// an invalidating write.
func (c *Config) CacheTTLDuration() time.Duration {
	if c.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *Config) DispatchInterval() time.Duration {
	if c.DispatchIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.DispatchIntervalSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development a
// session signing key of at least 32 bytes is required and the auth bypass is
// refused. The auth backend must be one of the known ones.
func (c *Config) Validate() error {
	switch c.AuthBackend {
	case "static", "store":
	default:
		return fmt.Errorf("AUTH_BACKEND must be \"static\" or \"store\", got %q", c.AuthBackend)
	}

	if c.DevAuthBypass && !c.IsDev() {
		return fmt.Errorf("DEV_AUTH_BYPASS is only allowed with ENV=development")
	}

	if !c.IsDev() && len(c.SessionSigningKey) < 32 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 characters outside development")
	}

	if c.AuthBackend == "static" && (c.AdminUsername == "" || c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required for the static auth backend")
	}

	if c.DispatchEnabled {
		if c.SMTPHost != "" && c.MailFrom == "" {
			return fmt.Errorf("MAIL_FROM is required when SMTP_HOST is set")
		}
		if c.SMSIRAPIKey != "" && c.SMSIRTemplateID == "" {
			return fmt.Errorf("SMSIR_TEMPLATE_ID is required when SMSIR_API_KEY is set")
		}
	}

	return nil
}
