// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Notification transports
const (
	TransportNone  = "none"
	TransportRedis = "redis"
	TransportAMQP  = "amqp"
)

var transports = []string{TransportNone, TransportRedis, TransportAMQP}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string        `env:"SITEHUB_DB_PATH" envDefault:"./data/sitehub.db"`
	JWTSecret  string        `env:"SITEHUB_JWT_SECRET,required"`
	JWTTTL     time.Duration `env:"SITEHUB_JWT_TTL" envDefault:"24h"`
	ServerHost string        `env:"SITEHUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort int           `env:"SITEHUB_SERVER_PORT" envDefault:"8080"`
	Env        string        `env:"SITEHUB_ENV" envDefault:"development"`
	LogLevel   string        `env:"SITEHUB_LOG_LEVEL" envDefault:"info"`

	// BaseDomain is the platform domain; sites live on its subdomains.
	BaseDomain string `env:"SITEHUB_BASE_DOMAIN" envDefault:"localhost"`

	// Cache configuration
	RedisURL     string        `env:"SITEHUB_REDIS_URL"`                           // Optional Redis URL for shared caching
	CachePrefix  string        `env:"SITEHUB_CACHE_PREFIX" envDefault:"sitehub:"`  // Redis key prefix
	CacheTTL     time.Duration `env:"SITEHUB_CACHE_TTL" envDefault:"5m"`           // Site lookup TTL
	CacheMaxSize int           `env:"SITEHUB_CACHE_MAX_SIZE" envDefault:"10000"`   // Max memory cache entries

	// Notification fan-out
	NotifyTransport string `env:"SITEHUB_NOTIFY_TRANSPORT" envDefault:"none"`
	AMQPURL         string `env:"SITEHUB_AMQP_URL"`
	AMQPExchange    string `env:"SITEHUB_AMQP_EXCHANGE" envDefault:"sitehub.notifications"`
	NotifyWorkers   int    `env:"SITEHUB_NOTIFY_WORKERS" envDefault:"2"`

	// Outgoing mail; SMTP is disabled when the host is empty.
	SMTPHost     string `env:"SITEHUB_SMTP_HOST"`
	SMTPPort     int    `env:"SITEHUB_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SITEHUB_SMTP_USERNAME"`
	SMTPPassword string `env:"SITEHUB_SMTP_PASSWORD"`
	SMTPFrom     string `env:"SITEHUB_SMTP_FROM"`

	// Accounts
	UnverifiedRetention time.Duration `env:"SITEHUB_UNVERIFIED_RETENTION" envDefault:"24h"`
	ResetURL            string        `env:"SITEHUB_RESET_URL" envDefault:"http://localhost:5173/reset-password/"`

	// Seeding configuration
	DoSeed        bool   `env:"SITEHUB_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"SITEHUB_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"SITEHUB_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SMTPEnabled returns true if an SMTP server is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// ParseLogLevel maps the configured level name to a slog level.
func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinJWTSecretLength is the minimum required length for the token signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.JWTSecret) {
		slog.Warn("SITEHUB_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("SITEHUB_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(c.JWTSecret))
	}
	if slices.Contains(knownWeakSecrets, c.JWTSecret) {
		return errors.New("SITEHUB_JWT_SECRET is a known default value and must not be used; " +
			"generate a secure secret with: openssl rand -base64 32")
	}
	if c.JWTTTL <= 0 {
		return errors.New("SITEHUB_JWT_TTL must be positive")
	}

	c.NotifyTransport = strings.ToLower(c.NotifyTransport)
	if !slices.Contains(transports, c.NotifyTransport) {
		return fmt.Errorf("SITEHUB_NOTIFY_TRANSPORT must be one of %s, got %q",
			strings.Join(transports, ", "), c.NotifyTransport)
	}
	if c.NotifyTransport == TransportRedis && c.RedisURL == "" {
		return errors.New("SITEHUB_NOTIFY_TRANSPORT=redis requires SITEHUB_REDIS_URL")
	}
	if c.NotifyTransport == TransportAMQP && c.AMQPURL == "" {
		return errors.New("SITEHUB_NOTIFY_TRANSPORT=amqp requires SITEHUB_AMQP_URL")
	}
	if c.NotifyWorkers < 1 {
		return errors.New("SITEHUB_NOTIFY_WORKERS must be at least 1")
	}

	if c.SMTPEnabled() && c.SMTPFrom == "" {
		return errors.New("SITEHUB_SMTP_FROM is required when SITEHUB_SMTP_HOST is set")
	}
	if c.DoSeed && c.AdminPassword == "" {
		return errors.New("SITEHUB_ADMIN_PASSWORD is required when SITEHUB_DO_SEED is set")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
