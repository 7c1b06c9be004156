package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path" validate:"required"`
	MediaRoot    string `mapstructure:"media_root" yaml:"media_root" validate:"required"`
	MediaURL     string `mapstructure:"media_url" yaml:"media_url" validate:"required"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required,min=8"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`
	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gt=0"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" validate:"gte=0"`
	HistoryLimit       int           `mapstructure:"history_limit" yaml:"history_limit" validate:"gt=0,lte=200"`
	PingInterval       time.Duration `mapstructure:"ping_interval" yaml:"ping_interval" validate:"gte=0"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	CleanupTimeout     time.Duration `mapstructure:"cleanup_timeout" yaml:"cleanup_timeout" validate:"gt=0"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		DatabasePath:       "chat.db",
		MediaRoot:          "media",
		MediaURL:           "/media",
		JWTSecret:          "change-me-in-production",
		JWTIssuer:          "chat",
		JWTAudience:        "chat",
		MaxMessageBytes:    8 << 20,
		SendBuffer:         32,
		RateLimitPerMinute: 120,
		HistoryLimit:       50,
		PingInterval:       30 * time.Second,
		WriteTimeout:       10 * time.Second,
		CleanupTimeout:     5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MediaRoot != "" {
		c.MediaRoot = other.MediaRoot
	}
	if other.MediaURL != "" {
		c.MediaURL = other.MediaURL
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
