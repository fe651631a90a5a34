package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:                            "development",
		CacheBackend:                   "sqlite",
		SecurityDefaultConfidentiality: "N",
		StalenessThresholdDays:         90,
		AuditFlushSchedule:             "@every 1m",
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.CacheBackend != "sqlite" {
		t.Errorf("expected default cache backend sqlite, got %s", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected default cache TTL 5m, got %v", cfg.CacheTTL)
	}
	if cfg.FHIRTimeout != 15*time.Second {
		t.Errorf("expected default FHIR timeout 15s, got %v", cfg.FHIRTimeout)
	}
	if cfg.AuditMaxLocalEvents != 1000 {
		t.Errorf("expected default max local events 1000, got %d", cfg.AuditMaxLocalEvents)
	}
	if cfg.ProvenanceMaxLocalRecords != 500 {
		t.Errorf("expected default max local records 500, got %d", cfg.ProvenanceMaxLocalRecords)
	}
	if !cfg.SecurityEnableBreakTheGlass {
		t.Error("expected break-the-glass enabled by default")
	}
	if cfg.StalenessThreshold() != 90*24*time.Hour {
		t.Errorf("expected 90 day staleness threshold, got %v", cfg.StalenessThreshold())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("FHIR_BASE_URL", "https://fhir.example.org/r4")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("STALENESS_THRESHOLD_DAYS", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FHIRBaseURL != "https://fhir.example.org/r4" {
		t.Errorf("expected FHIR_BASE_URL from env, got %s", cfg.FHIRBaseURL)
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("expected cache backend lowercased to redis, got %s", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected CACHE_TTL 30s, got %v", cfg.CacheTTL)
	}
	if cfg.StalenessThresholdDays != 30 {
		t.Errorf("expected 30 days, got %d", cfg.StalenessThresholdDays)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("expected two trimmed CORS origins, got %q", cfg.CORSOrigins)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid development", func(c *Config) {}, ""},
		{"production without signing key", func(c *Config) {
			c.Env = "production"
		}, "AUTH_SIGNING_KEY"},
		{"production without hipaa key", func(c *Config) {
			c.Env = "production"
			c.AuthSigningKey = "secret"
		}, "HIPAA_ENCRYPTION_KEY is required"},
		{"production complete", func(c *Config) {
			c.Env = "production"
			c.AuthSigningKey = "secret"
			c.HIPAAEncryptionKey = strings.Repeat("ab", 32)
		}, ""},
		{"hipaa key not hex", func(c *Config) {
			c.HIPAAEncryptionKey = "zz"
		}, "not valid hex"},
		{"hipaa key too short", func(c *Config) {
			c.HIPAAEncryptionKey = "abcd"
		}, "must be 32 bytes"},
		{"bad fhir url", func(c *Config) {
			c.FHIRBaseURL = "fhir.example.org"
		}, "FHIR_BASE_URL"},
		{"unknown cache backend", func(c *Config) {
			c.CacheBackend = "memcached"
		}, "CACHE_BACKEND"},
		{"redis without url", func(c *Config) {
			c.CacheBackend = "redis"
		}, "REDIS_URL"},
		{"bad confidentiality", func(c *Config) {
			c.SecurityDefaultConfidentiality = "X"
		}, "SECURITY_DEFAULT_CONFIDENTIALITY"},
		{"zero staleness threshold", func(c *Config) {
			c.StalenessThresholdDays = 0
		}, "STALENESS_THRESHOLD_DAYS"},
		{"bad flush schedule", func(c *Config) {
			c.AuditFlushSchedule = "every minute"
		}, "AUDIT_FLUSH_SCHEDULE"},
		{"tls without cert", func(c *Config) {
			c.TLSEnabled = true
		}, "TLS_CERT_FILE"},
		{"tls without key", func(c *Config) {
			c.TLSEnabled = true
			c.TLSCertFile = "cert.pem"
		}, "TLS_KEY_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
