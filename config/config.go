package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Site       SiteConfig       `yaml:"site"`
}

// WorkerPoolConfig holds the configuration for the notification send pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// DispatchConfig holds the reminder dispatcher settings.
type DispatchConfig struct {
	// CronSecret authenticates the external scheduler hitting the cron endpoint.
	CronSecret string `yaml:"cron_secret"`
	// BucketMinutes is the due-time matching window. It should equal the
	// scheduler's invocation cadence so every bucket is visited exactly once.
	BucketMinutes      int           `yaml:"bucket_minutes"`
	SendTimeoutSeconds int           `yaml:"send_timeout_seconds"`
	SendTimeout        time.Duration `yaml:"-"`
	// Cron optionally runs the dispatcher in-process on this cron expression
	// instead of relying on an external scheduler.
	Cron string `yaml:"cron"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	// JWTSecret verifies the bearer tokens issued by the session subsystem.
	JWTSecret string `yaml:"jwt_secret"`
}

// SiteConfig holds the public-facing site settings.
type SiteConfig struct {
	// URL is the public origin used to build notification click targets.
	URL string `yaml:"url"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path. Secrets may be supplied or
// overridden through the environment (VAPID_PUBLIC_KEY, VAPID_PRIVATE_KEY,
// CRON_SECRET, JWT_SECRET) so they can stay out of the config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Dispatch.BucketMinutes <= 0 {
		cfg.Dispatch.BucketMinutes = 5
	}
	if cfg.Dispatch.SendTimeoutSeconds <= 0 {
		cfg.Dispatch.SendTimeoutSeconds = 10
	}
	cfg.Dispatch.SendTimeout = time.Duration(cfg.Dispatch.SendTimeoutSeconds) * time.Second

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Site.URL == "" {
		cfg.Site.URL = "http://localhost:8080"
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Dispatch.CronSecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
}
