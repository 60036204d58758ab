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
	Reader     ReaderConfig     `yaml:"reader"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ReaderConfig holds the RFID reader loop configuration.
type ReaderConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Device          string        `yaml:"device"` // FIFO or character device delivering card UIDs
	PollIntervalMS  int           `yaml:"poll_interval_ms"`
	PollInterval    time.Duration `yaml:"-"`
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	Cooldown        time.Duration `yaml:"-"`
}

// SchedulerConfig holds the auto-checkout scheduler configuration.
type SchedulerConfig struct {
	TickSeconds int           `yaml:"tick_seconds"`
	Tick        time.Duration `yaml:"-"`
}

// AuthConfig holds the admin token configuration.
type AuthConfig struct {
	SigningKey       string        `yaml:"signing_key"`
	Issuer           string        `yaml:"issuer"`
	AccessTTLMinutes int           `yaml:"access_ttl_minutes"`
	AccessTTL        time.Duration `yaml:"-"`
	RefreshTTLHours  int           `yaml:"refresh_ttl_hours"`
	RefreshTTL       time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
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
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults for unset fields and derives the duration
// forms of the interval settings.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "attendance.db"
	}

	if cfg.Reader.PollIntervalMS <= 0 {
		cfg.Reader.PollIntervalMS = 300
	}
	cfg.Reader.PollInterval = time.Duration(cfg.Reader.PollIntervalMS) * time.Millisecond
	if cfg.Reader.CooldownSeconds <= 0 {
		cfg.Reader.CooldownSeconds = 2
	}
	cfg.Reader.Cooldown = time.Duration(cfg.Reader.CooldownSeconds) * time.Second

	if cfg.Scheduler.TickSeconds <= 0 {
		cfg.Scheduler.TickSeconds = 60
	}
	cfg.Scheduler.Tick = time.Duration(cfg.Scheduler.TickSeconds) * time.Second

	if cfg.Auth.AccessTTLMinutes <= 0 {
		cfg.Auth.AccessTTLMinutes = 30
	}
	cfg.Auth.AccessTTL = time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute
	if cfg.Auth.RefreshTTLHours <= 0 {
		cfg.Auth.RefreshTTLHours = 24 * 7
	}
	cfg.Auth.RefreshTTL = time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
