package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// FHIR server the calculators read from.
	FHIRBaseURL         string        `mapstructure:"FHIR_BASE_URL"`
	FHIRTimeout         time.Duration `mapstructure:"FHIR_TIMEOUT"`
	FHIRRateLimitRPS    float64       `mapstructure:"FHIR_RATE_LIMIT_RPS"`
	FHIRRateLimitBurst  int           `mapstructure:"FHIR_RATE_LIMIT_BURST"`
	FHIRBreakerFailures uint32        `mapstructure:"FHIR_BREAKER_FAILURES"`

	// Local device store and observation cache.
	StorePath          string        `mapstructure:"STORE_PATH"`
	CacheBackend       string        `mapstructure:"CACHE_BACKEND"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	HIPAAEncryptionKey string        `mapstructure:"HIPAA_ENCRYPTION_KEY"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`

	AuditApplicationID      string `mapstructure:"AUDIT_APPLICATION_ID"`
	AuditApplicationName    string `mapstructure:"AUDIT_APPLICATION_NAME"`
	AuditApplicationVersion string `mapstructure:"AUDIT_APPLICATION_VERSION"`
	AuditSiteID             string `mapstructure:"AUDIT_SITE_ID"`
	AuditServerURL          string `mapstructure:"AUDIT_SERVER_URL"`
	AuditEnableLocalStorage bool   `mapstructure:"AUDIT_ENABLE_LOCAL_STORAGE"`
	AuditMaxLocalEvents     int    `mapstructure:"AUDIT_MAX_LOCAL_EVENTS"`
	AuditFlushSchedule      string `mapstructure:"AUDIT_FLUSH_SCHEDULE"`
	AuditDebug              bool   `mapstructure:"AUDIT_DEBUG"`

	ProvenanceMaxLocalRecords int `mapstructure:"PROVENANCE_MAX_LOCAL_RECORDS"`

	SecurityEnableMasking          bool   `mapstructure:"SECURITY_ENABLE_MASKING"`
	SecurityEnableWarnings         bool   `mapstructure:"SECURITY_ENABLE_WARNINGS"`
	SecurityDefaultConfidentiality string `mapstructure:"SECURITY_DEFAULT_CONFIDENTIALITY"`
	SecurityLogSensitiveAccess     bool   `mapstructure:"SECURITY_LOG_SENSITIVE_ACCESS"`
	SecurityEnableBreakTheGlass    bool   `mapstructure:"SECURITY_ENABLE_BREAK_THE_GLASS"`
	SecurityMaskCharacter          string `mapstructure:"SECURITY_MASK_CHARACTER"`
	SecurityLanguage               string `mapstructure:"SECURITY_LANGUAGE"`
	SecurityDebug                  bool   `mapstructure:"SECURITY_DEBUG"`

	StalenessThresholdDays int `mapstructure:"STALENESS_THRESHOLD_DAYS"`

	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	PopulateLimit  string        `mapstructure:"POPULATE_BODY_LIMIT"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var defaults = map[string]interface{}{
	"PORT":                             "8000",
	"ENV":                              "development",
	"CORS_ORIGINS":                     "http://localhost:3000",
	"FHIR_TIMEOUT":                     "15s",
	"FHIR_RATE_LIMIT_RPS":              10,
	"FHIR_RATE_LIMIT_BURST":            20,
	"FHIR_BREAKER_FAILURES":            5,
	"STORE_PATH":                       "data/medcalc.db",
	"CACHE_BACKEND":                    "sqlite",
	"CACHE_TTL":                        "5m",
	"AUDIT_APPLICATION_ID":             "medcalc-ehr",
	"AUDIT_APPLICATION_NAME":           "MedCalc EHR",
	"AUDIT_APPLICATION_VERSION":        "1.0.0",
	"AUDIT_ENABLE_LOCAL_STORAGE":       true,
	"AUDIT_MAX_LOCAL_EVENTS":           1000,
	"AUDIT_FLUSH_SCHEDULE":             "@every 1m",
	"PROVENANCE_MAX_LOCAL_RECORDS":     500,
	"SECURITY_ENABLE_MASKING":          true,
	"SECURITY_ENABLE_WARNINGS":         true,
	"SECURITY_DEFAULT_CONFIDENTIALITY": "N",
	"SECURITY_LOG_SENSITIVE_ACCESS":    true,
	"SECURITY_ENABLE_BREAK_THE_GLASS":  true,
	"SECURITY_MASK_CHARACTER":          "●",
	"SECURITY_LANGUAGE":                "en",
	"STALENESS_THRESHOLD_DAYS":         90,
	"RATE_LIMIT_RPS":                   100,
	"RATE_LIMIT_BURST":                 200,
	"REQUEST_TIMEOUT":                  "30s",
	"BODY_LIMIT":                       "1M",
	"POPULATE_BODY_LIMIT":              "4M",
}

var envKeys = []string{
	"PORT", "ENV", "CORS_ORIGINS",
	"FHIR_BASE_URL", "FHIR_TIMEOUT", "FHIR_RATE_LIMIT_RPS", "FHIR_RATE_LIMIT_BURST", "FHIR_BREAKER_FAILURES",
	"STORE_PATH", "CACHE_BACKEND", "REDIS_URL", "CACHE_TTL", "HIPAA_ENCRYPTION_KEY",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"AUDIT_APPLICATION_ID", "AUDIT_APPLICATION_NAME", "AUDIT_APPLICATION_VERSION", "AUDIT_SITE_ID",
	"AUDIT_SERVER_URL", "AUDIT_ENABLE_LOCAL_STORAGE", "AUDIT_MAX_LOCAL_EVENTS", "AUDIT_FLUSH_SCHEDULE", "AUDIT_DEBUG",
	"PROVENANCE_MAX_LOCAL_RECORDS",
	"SECURITY_ENABLE_MASKING", "SECURITY_ENABLE_WARNINGS", "SECURITY_DEFAULT_CONFIDENTIALITY",
	"SECURITY_LOG_SENSITIVE_ACCESS", "SECURITY_ENABLE_BREAK_THE_GLASS", "SECURITY_MASK_CHARACTER",
	"SECURITY_LANGUAGE", "SECURITY_DEBUG",
	"STALENESS_THRESHOLD_DAYS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "POPULATE_BODY_LIMIT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
		log.Println("WARNING: Set ENV=production and AUTH_SIGNING_KEY for real deployments.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// StalenessThreshold is STALENESS_THRESHOLD_DAYS as a duration.
func (c *Config) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdDays) * 24 * time.Hour
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so bearer tokens are verified. In production
// HIPAA_ENCRYPTION_KEY is required and must be a 64-character hex string
// (32 bytes when decoded).
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q; "+
			"refusing to start without authentication configuration", c.Env)
	}

	if c.FHIRBaseURL != "" && !strings.HasPrefix(c.FHIRBaseURL, "http://") && !strings.HasPrefix(c.FHIRBaseURL, "https://") {
		return fmt.Errorf("FHIR_BASE_URL must be an http(s) URL, got %q", c.FHIRBaseURL)
	}

	switch c.CacheBackend {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is \"redis\"")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be \"memory\", \"sqlite\", or \"redis\", got %q", c.CacheBackend)
	}

	// HIPAA encryption key validation
	if c.IsProduction() && c.HIPAAEncryptionKey == "" {
		return fmt.Errorf("HIPAA_ENCRYPTION_KEY is required in production")
	}
	if c.HIPAAEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.HIPAAEncryptionKey)
		if err != nil {
			return fmt.Errorf("HIPAA_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("HIPAA_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	switch c.SecurityDefaultConfidentiality {
	case "U", "L", "M", "N", "R", "V":
	default:
		return fmt.Errorf("SECURITY_DEFAULT_CONFIDENTIALITY must be one of U, L, M, N, R, V, got %q", c.SecurityDefaultConfidentiality)
	}

	if c.StalenessThresholdDays <= 0 {
		return fmt.Errorf("STALENESS_THRESHOLD_DAYS must be positive, got %d", c.StalenessThresholdDays)
	}

	if c.AuditFlushSchedule != "" {
		if _, err := cron.ParseStandard(c.AuditFlushSchedule); err != nil {
			return fmt.Errorf("AUDIT_FLUSH_SCHEDULE is invalid: %w", err)
		}
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
