package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected a development secret")
	}
	if !cfg.SeedDemoUsers {
		t.Fatalf("expected demo users to be seeded in development")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/maratonas")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing JWT_SECRET to fail")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.AccessTokenTTL)
	}
	if cfg.SeedDemoUsers {
		t.Fatalf("demo users must not be seeded outside development")
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid IDEMPOTENCY_TTL_SECONDS to fail")
	}
}

func TestLoadClientFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `api_url = "https://maratonas.example/api/v1/"
storage = "file"
session_dir = "/tmp/maratonas"
timeout = "5s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MARATONAS_API_URL", "")
	t.Setenv("MARATONAS_STORAGE", "")
	t.Setenv("MARATONAS_SESSION_DIR", "")
	t.Setenv("MARATONAS_REDIS_URL", "")
	t.Setenv("MARATONAS_TIMEOUT", "")

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://maratonas.example/api/v1" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.SessionDir != "/tmp/maratonas" || cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("MARATONAS_STORAGE", "redis")
	if _, err := LoadClient(path); err == nil {
		t.Fatalf("expected redis storage without url to fail")
	}

	t.Setenv("MARATONAS_REDIS_URL", "redis://localhost:6379/1")
	cfg, err = LoadClient(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != StorageRedis {
		t.Fatalf("expected env override, got %q", cfg.Storage)
	}
}

func TestLoadClientMissingFile(t *testing.T) {
	t.Setenv("MARATONAS_API_URL", "")
	t.Setenv("MARATONAS_STORAGE", "")
	t.Setenv("MARATONAS_TIMEOUT", "")
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != defaultClientAPIURL || cfg.Storage != StorageFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
