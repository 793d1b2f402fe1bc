// Package config defines the runtime settings of the relay together with
// their defaults, validation, and loading from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPort            = ":8080"
	DefaultMaxMessageSize  = 64 * 1024
	DefaultRateLimitBurst  = 20
	DefaultRefillInterval  = time.Second
	DefaultSendBufferSize  = 256
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultPushTTL         = 3600
	DefaultShutdownTimeout = 30 * time.Second
)

// RateLimit defines per-connection message rate limiting: Burst messages may
// be sent per RefillInterval.
type RateLimit struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// Config holds the server configuration.
type Config struct {
	// Port is the listen address, e.g. ":8080" or "0.0.0.0:3012".
	Port           string    `yaml:"port"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	MaxMessageSize int64     `yaml:"max_message_size"`
	RateLimit      RateLimit `yaml:"rate_limit"`
	SendBufferSize int       `yaml:"send_buffer_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// VAPIDKeyPath enables push notifications when set.
	VAPIDKeyPath    string `yaml:"vapid_private_key"`
	VAPIDSubscriber string `yaml:"vapid_subscriber"`
	PushTTL         int    `yaml:"push_ttl"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: DefaultMaxMessageSize,
		RateLimit: RateLimit{
			Burst:          DefaultRateLimitBurst,
			RefillInterval: DefaultRefillInterval,
		},
		SendBufferSize:  DefaultSendBufferSize,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		PushTTL:         DefaultPushTTL,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Normalize replaces zero or negative values with defaults and trims origins.
func (c *Config) Normalize() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultRateLimitBurst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = DefaultRefillInterval
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = DefaultSendBufferSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.PushTTL <= 0 {
		c.PushTTL = DefaultPushTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
}

// TLSEnabled reports whether the server should serve HTTPS/WSS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// PushEnabled reports whether a VAPID key is configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDKeyPath != ""
}

func (c *Config) Validate() error {
	var errs []error
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls_cert_file and tls_key_file must be set together"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.VAPIDSubscriber != "" && !c.PushEnabled() {
		errs = append(errs, errors.New("vapid_subscriber set without vapid_private_key"))
	}
	return errors.Join(errs...)
}
