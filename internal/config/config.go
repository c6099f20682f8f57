package config

import (
	"flag"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"` // development, production

	// Remote documents API
	APIHost       string            `env:"API_HOST" envDefault:"http://localhost:3001"`
	APIHeaders    map[string]string `env:"API_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	PublicBaseURL string            `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Session slot
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"sqlite"` // sqlite, postgres, redis, memory
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"portal.db"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	SessionSealKey string `env:"SESSION_SEAL_KEY"`
	IntakeMarker   string `env:"INTAKE_MARKER" envDefault:"intake"`

	// Uploads
	StagingDir       string `env:"STAGING_DIR"`
	RestoreOnFailure bool   `env:"UPLOAD_RESTORE_ON_FAILURE" envDefault:"false"`
	ExclusiveSubmit  bool   `env:"UPLOAD_EXCLUSIVE_SUBMIT" envDefault:"false"`
	StrictAccept     bool   `env:"UPLOAD_STRICT_ACCEPT" envDefault:"false"`
	StripMetadata    bool   `env:"UPLOAD_STRIP_METADATA" envDefault:"false"`
	DefaultName      string `env:"UPLOAD_DEFAULT_NAME" envDefault:"Akbar"`
	DefaultPhone     string `env:"UPLOAD_DEFAULT_PHONE" envDefault:"919670867797"`

	// Events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"portal.events"`

	// SMTP
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPFromEmail string `env:"SMTP_FROM_EMAIL"`
	SMTPFromName  string `env:"SMTP_FROM_NAME" envDefault:"Trajector"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

var storageDrivers = []string{"sqlite", "postgres", "redis", "memory"}

// Load reads .env (if present), the environment, then command-line flags.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "Server port")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development, production)")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Session storage driver (sqlite, postgres, redis, memory)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if !slices.Contains(storageDrivers, c.StorageDriver) {
		return fmt.Errorf("STORAGE_DRIVER must be one of %s", strings.Join(storageDrivers, ", "))
	}
	if (c.StorageDriver == "sqlite" || c.StorageDriver == "postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the %s driver", c.StorageDriver)
	}
	if c.StorageDriver == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis driver")
	}
	if u, err := url.Parse(c.APIHost); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_HOST must be an absolute URL")
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL")
	}
	if c.SessionSealKey != "" && len(c.SessionSealKey) < 16 {
		return fmt.Errorf("SESSION_SEAL_KEY must be at least 16 characters")
	}
	if c.SMTPHost != "" && c.SMTPFromEmail == "" {
		return fmt.Errorf("SMTP_FROM_EMAIL is required when SMTP_HOST is set")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
