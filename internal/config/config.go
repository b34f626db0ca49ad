package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Site identity
	SiteURL  string `yaml:"site_url"`
	SiteName string `yaml:"site_name"`

	// Auth
	AdminAPIKey string `yaml:"admin_api_key"`

	// Storage
	StoreBackend     string        `yaml:"store_backend"`
	DatabasePath     string        `yaml:"database_path"`
	PostgrestURL     string        `yaml:"postgrest_url"`
	PostgrestAPIKey  string        `yaml:"postgrest_api_key"`
	StoreStatsWindow time.Duration `yaml:"store_stats_window"`

	// Image proxy
	ImageCacheDir       string        `yaml:"image_cache_dir"`
	ImageAllowSVG       bool          `yaml:"image_allow_svg"`
	ImageRemotePatterns []string      `yaml:"image_remote_patterns"`
	ImageMaxBytes       int64         `yaml:"image_max_bytes"`
	ImageCacheTTL       time.Duration `yaml:"image_cache_ttl"`
	ImageMaxPerHost     int           `yaml:"image_max_per_host"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Pages
	RelatedProjectsLimit int `yaml:"related_projects_limit"`

	// View tracking
	TrackerQueueSize     int           `yaml:"tracker_queue_size"`
	TrackerFlushInterval time.Duration `yaml:"tracker_flush_interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",

		SiteURL:  "https://zg0ul.com",
		SiteName: "zg0ul's Projects",

		StoreBackend:     "sqlite",
		DatabasePath:     "portfolio.db",
		StoreStatsWindow: 1 * time.Hour,

		ImageAllowSVG:       true,
		ImageRemotePatterns: []string{"https://**"},
		ImageMaxBytes:       10485760, // 10MB
		ImageCacheTTL:       24 * time.Hour,
		ImageMaxPerHost:     4,

		MaxUploadBytes: 20971520, // 20MB

		RelatedProjectsLimit: 2,

		TrackerQueueSize:     256,
		TrackerFlushInterval: 10 * time.Second,
	}
}

// Load reads the configuration. Values come from the defaults, then the
// YAML file named by CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg = Config{
		Port:     envOr("PORT", cfg.Port),
		LogLevel: envOr("LOG_LEVEL", cfg.LogLevel),

		SiteURL:  strings.TrimRight(envOr("SITE_URL", cfg.SiteURL), "/"),
		SiteName: envOr("SITE_NAME", cfg.SiteName),

		AdminAPIKey: envOr("ADMIN_API_KEY", cfg.AdminAPIKey),

		StoreBackend:     envOr("STORE_BACKEND", cfg.StoreBackend),
		DatabasePath:     envOr("DATABASE_PATH", cfg.DatabasePath),
		PostgrestURL:     envOr("POSTGREST_URL", cfg.PostgrestURL),
		PostgrestAPIKey:  envOr("POSTGREST_API_KEY", cfg.PostgrestAPIKey),
		StoreStatsWindow: envDuration("STORE_STATS_WINDOW", cfg.StoreStatsWindow),

		ImageCacheDir:       envOr("IMAGE_CACHE_DIR", cfg.ImageCacheDir),
		ImageAllowSVG:       envBool("IMAGE_ALLOW_SVG", cfg.ImageAllowSVG),
		ImageRemotePatterns: envList("IMAGE_REMOTE_PATTERNS", cfg.ImageRemotePatterns),
		ImageMaxBytes:       envInt64("IMAGE_MAX_BYTES", cfg.ImageMaxBytes),
		ImageCacheTTL:       envDuration("IMAGE_CACHE_TTL", cfg.ImageCacheTTL),
		ImageMaxPerHost:     envInt("IMAGE_MAX_PER_HOST", cfg.ImageMaxPerHost),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes),

		RelatedProjectsLimit: envInt("RELATED_PROJECTS_LIMIT", cfg.RelatedProjectsLimit),

		TrackerQueueSize:     envInt("TRACKER_QUEUE_SIZE", cfg.TrackerQueueSize),
		TrackerFlushInterval: envDuration("TRACKER_FLUSH_INTERVAL", cfg.TrackerFlushInterval),
	}

	def := Defaults()
	if cfg.ImageMaxBytes <= 0 {
		cfg.ImageMaxBytes = def.ImageMaxBytes
	}
	if cfg.ImageMaxPerHost <= 0 {
		cfg.ImageMaxPerHost = def.ImageMaxPerHost
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.RelatedProjectsLimit < 0 {
		cfg.RelatedProjectsLimit = def.RelatedProjectsLimit
	}
	if cfg.TrackerQueueSize <= 0 {
		cfg.TrackerQueueSize = def.TrackerQueueSize
	}
	if cfg.TrackerFlushInterval <= 0 {
		cfg.TrackerFlushInterval = def.TrackerFlushInterval
	}
	if cfg.StoreStatsWindow <= 0 {
		cfg.StoreStatsWindow = def.StoreStatsWindow
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}
	switch c.StoreBackend {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite backend")
		}
	case "postgrest":
		if c.PostgrestURL == "" {
			return fmt.Errorf("POSTGREST_URL is required for the postgrest backend")
		}
		if c.PostgrestAPIKey == "" {
			return fmt.Errorf("POSTGREST_API_KEY is required for the postgrest backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be sqlite or postgrest, got %q", c.StoreBackend)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// SiteHost is the host part of SiteURL.
func (c Config) SiteHost() string {
	host := strings.TrimPrefix(strings.TrimPrefix(c.SiteURL, "https://"), "http://")
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return host
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
