package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const envVarConfigFile = "CONFIG_FILE"

// setting binds one Config field to its environment variable and flag.
type setting struct {
	env   string
	flag  string
	usage string
	set   func(c *Config, raw string) error
}

var settings = []setting{
	{"SERVER_PORT", "port", "listen address, e.g. :8080", func(c *Config, raw string) error {
		c.Port = raw
		return nil
	}},
	{"ALLOWED_ORIGINS", "allowed-origins", "comma separated WebSocket origins, * allows any", func(c *Config, raw string) error {
		c.AllowedOrigins = parseOrigins(raw)
		return nil
	}},
	{"MAX_MESSAGE_SIZE", "max-message-size", "maximum inbound message size in bytes", func(c *Config, raw string) error {
		v, err := parsePositiveInt(raw)
		c.MaxMessageSize = int64(v)
		return err
	}},
	{"RATE_LIMIT_BURST", "rate-limit-burst", "messages allowed per refill interval", func(c *Config, raw string) error {
		v, err := parsePositiveInt(raw)
		c.RateLimit.Burst = v
		return err
	}},
	{"RATE_LIMIT_REFILL_INTERVAL", "rate-limit-refill", "rate limit refill interval (seconds or duration)", func(c *Config, raw string) error {
		v, err := parseRefillInterval(raw)
		c.RateLimit.RefillInterval = v
		return err
	}},
	{"SEND_BUFFER_SIZE", "send-buffer-size", "outbound messages queued per connection", func(c *Config, raw string) error {
		v, err := parsePositiveInt(raw)
		c.SendBufferSize = v
		return err
	}},
	{"LOG_LEVEL", "log-level", "debug, info, warn or error", func(c *Config, raw string) error {
		c.LogLevel = raw
		return nil
	}},
	{"LOG_FORMAT", "log-format", "text or json", func(c *Config, raw string) error {
		c.LogFormat = raw
		return nil
	}},
	{"TLS_CERT_FILE", "tls-cert", "TLS certificate file", func(c *Config, raw string) error {
		c.TLSCertFile = raw
		return nil
	}},
	{"TLS_KEY_FILE", "tls-key", "TLS private key file", func(c *Config, raw string) error {
		c.TLSKeyFile = raw
		return nil
	}},
	{"VAPID_PRIVATE_KEY", "vapid-key", "path of the PEM VAPID private key; enables push", func(c *Config, raw string) error {
		c.VAPIDKeyPath = raw
		return nil
	}},
	{"VAPID_SUBSCRIBER", "vapid-subscriber", "contact (mailto: or https:) sent to push services", func(c *Config, raw string) error {
		c.VAPIDSubscriber = raw
		return nil
	}},
	{"PUSH_TTL", "push-ttl", "push notification TTL in seconds", func(c *Config, raw string) error {
		v, err := parsePositiveInt(raw)
		c.PushTTL = v
		return err
	}},
	{"SHUTDOWN_TIMEOUT", "shutdown-timeout", "graceful shutdown timeout", func(c *Config, raw string) error {
		v, err := time.ParseDuration(raw)
		c.ShutdownTimeout = v
		return err
	}},
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by -config or CONFIG_FILE, environment variables,
// flags, and the positional arguments ADDR [VAPIDKEY].
func Load(args []string) (*Config, error) {
	return load(os.LookupEnv, args, os.Stderr)
}

func load(lookup func(string) (string, bool), args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("rendezvous", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [ADDR [VAPIDKEY]]\n", fs.Name())
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML config file")
	byFlag := make(map[string]setting, len(settings))
	for _, s := range settings {
		fs.String(s.flag, "", s.usage+" (env "+s.env+")")
		byFlag[s.flag] = s
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	path := *configPath
	if path == "" {
		path, _ = lookup(envVarConfigFile)
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	var errs []error
	for _, s := range settings {
		raw, ok := lookup(s.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		if err := s.set(cfg, strings.TrimSpace(raw)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.env, err))
		}
	}

	fs.Visit(func(f *flag.Flag) {
		s, ok := byFlag[f.Name]
		if !ok {
			return
		}
		if err := s.set(cfg, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.Port = rest[0]
	case 2:
		cfg.Port, cfg.VAPIDKeyPath = rest[0], rest[1]
	default:
		errs = append(errs, fmt.Errorf("unexpected arguments: %q", rest[2:]))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", parsed)
	}
	return parsed, nil
}

// parseRefillInterval accepts whole seconds ("2") or a duration ("500ms").
func parseRefillInterval(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
