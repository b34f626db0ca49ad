package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch key {
		case "CONFIG_FILE", "PORT", "LOG_LEVEL", "SITE_URL", "SITE_NAME", "ADMIN_API_KEY",
			"STORE_BACKEND", "DATABASE_PATH", "POSTGREST_URL", "POSTGREST_API_KEY",
			"IMAGE_CACHE_DIR", "IMAGE_ALLOW_SVG", "IMAGE_REMOTE_PATTERNS", "IMAGE_MAX_BYTES",
			"IMAGE_CACHE_TTL", "IMAGE_MAX_PER_HOST", "MAX_UPLOAD_BYTES", "RELATED_PROJECTS_LIMIT",
			"TRACKER_QUEUE_SIZE", "TRACKER_FLUSH_INTERVAL", "STORE_STATS_WINDOW":
			t.Setenv(key, "")
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.SiteName != "zg0ul's Projects" || cfg.SiteURL != "https://zg0ul.com" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RelatedProjectsLimit != 2 || cfg.TrackerQueueSize != 256 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.ImageRemotePatterns) != 1 || cfg.ImageRemotePatterns[0] != "https://**" {
		t.Errorf("unexpected remote patterns %v", cfg.ImageRemotePatterns)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ADMIN_API_KEY") {
		t.Errorf("expected missing admin key error, got %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	file := `port: "9000"
site_name: File Site
admin_api_key: from-file
image_allow_svg: false
image_cache_ttl: 2h
image_remote_patterns:
  - https://cdn.example.com/**
related_projects_limit: 4
`
	if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("SITE_URL", "https://example.dev/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected env to win for port, got %q", cfg.Port)
	}
	if cfg.SiteName != "File Site" || cfg.AdminAPIKey != "from-file" {
		t.Errorf("expected file values, got %+v", cfg)
	}
	if cfg.ImageAllowSVG {
		t.Error("expected svg disabled by file")
	}
	if cfg.ImageCacheTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %v", cfg.ImageCacheTTL)
	}
	if cfg.RelatedProjectsLimit != 4 {
		t.Errorf("expected related limit 4, got %d", cfg.RelatedProjectsLimit)
	}
	if cfg.SiteURL != "https://example.dev" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.SiteURL)
	}
	if cfg.SiteHost() != "example.dev" {
		t.Errorf("unexpected site host %q", cfg.SiteHost())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("port: [unclosed"), 0o644)
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_Backends(t *testing.T) {
	cfg := Defaults()
	cfg.AdminAPIKey = "k"

	cfg.StoreBackend = "postgrest"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "POSTGREST_URL") {
		t.Errorf("expected POSTGREST_URL error, got %v", err)
	}
	cfg.PostgrestURL = "https://db.example.dev"
	cfg.PostgrestAPIKey = "anon"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.StoreBackend = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown backend error")
	}

	cfg.StoreBackend = "sqlite"
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected bad log level error")
	}
}
