package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Kerhoff/chcemmat/internal/bucket"
	"github.com/Kerhoff/chcemmat/internal/mail"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	JWTSecret      string        `env:"JWT_SECRET,notEmpty"`
	Port           string        `env:"PORT" envDefault:"8080"`
	PrometheusPort string        `env:"PROMETHEUS_PORT" envDefault:"9090"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	ShareBaseURL   string        `env:"SHARE_BASE_URL" envDefault:"http://localhost:3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// RedisAddr enables shared session revocation. Empty keeps revoked
	// sessions in process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SendGridAPIKey   string `env:"SENDGRID_API_KEY"`
	ContactFromEmail string `env:"CONTACT_FROM_EMAIL" envDefault:"noreply@chcemmat.sk"`
	ContactFromName  string `env:"CONTACT_FROM_NAME" envDefault:"Chcem mať"`
	ContactToEmail   string `env:"CONTACT_TO_EMAIL" envDefault:"info@chcemmat.sk"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"chcemmat"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	TelegramAlertChatID int64  `env:"TELEGRAM_ALERT_CHAT_ID"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
	ReconcileGrace    time.Duration `env:"RECONCILE_GRACE" envDefault:"5m"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", cfg.ReconcileInterval)
	}
	return cfg, nil
}

// MailEnabled reports whether contact form delivery is configured
func (c *Config) MailEnabled() bool {
	return c.SendGridAPIKey != ""
}

// Mail returns the contact mail settings
func (c *Config) Mail() *mail.Config {
	return &mail.Config{
		APIKey:    c.SendGridAPIKey,
		FromEmail: c.ContactFromEmail,
		FromName:  c.ContactFromName,
		ToEmail:   c.ContactToEmail,
	}
}

// BucketEnabled reports whether image uploads are configured
func (c *Config) BucketEnabled() bool {
	return c.S3Endpoint != ""
}

// Bucket returns the object storage settings
func (c *Config) Bucket() *bucket.Config {
	return &bucket.Config{
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		UseSSL:    c.S3UseSSL,
		PublicURL: c.S3PublicURL,
	}
}

// AlertsEnabled reports whether operator alerts go to Telegram
func (c *Config) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramAlertChatID != 0
}
