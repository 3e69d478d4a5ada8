package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.SessionTTL != defaultSessionTTL {
		t.Fatalf("expected session ttl %s, got %s", defaultSessionTTL, cfg.SessionTTL)
	}
	if cfg.SessionSecret == "" {
		t.Fatalf("expected development session secret")
	}
}

func TestAdminMobileDefaultsOnlyInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminMobile != defaultAdminMobile {
		t.Fatalf("expected default admin mobile, got %q", cfg.AdminMobile)
	}

	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/fieldops")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_SECRET", "s3cret")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminMobile != "" {
		t.Fatalf("expected no admin seed in production, got %q", cfg.AdminMobile)
	}
}

func TestLoadProductionRequiresBackingServices(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestLoadRejectsDevInboxInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/fieldops")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for OTP inbox in production")
	}
}

func TestShutdownSecondsOverride(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv(shutdownSecondsEnvVar, "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.ShutdownPeriod)
	}
}

func TestClientBaseURL(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com/")
	t.Setenv("FIELDOPS_STATE_DIR", t.TempDir())

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if got := cfg.BaseURL(); got != "https://api.example.com/api/v1/" {
		t.Fatalf("unexpected base url %s", got)
	}
	if !cfg.LegacyExpiryMessages {
		t.Fatalf("expected legacy expiry matching on by default")
	}

	t.Setenv("API_URL", "")
	cfg, err = LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if got := cfg.BaseURL(); got != APIPath {
		t.Fatalf("expected relative base, got %s", got)
	}
}
