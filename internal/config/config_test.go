package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envMap(nil), nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.PushEnabled())
	assert.False(t, cfg.TLSEnabled())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("RDV_TEST_SUBSCRIBER", "mailto:ops@example.com")
	path := writeTempFile(t, `
port: ":9000"
allowed_origins:
  - https://app.example.com
rate_limit:
  burst: 3
  refill_interval: 500ms
vapid_private_key: /etc/rendezvous/vapid.pem
vapid_subscriber: ${RDV_TEST_SUBSCRIBER}
shutdown_timeout: 5s
`)

	cfg, err := load(envMap(nil), []string{"-config", path}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "mailto:ops@example.com", cfg.VAPIDSubscriber)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.PushEnabled())
	// Untouched keys keep defaults.
	assert.Equal(t, int64(DefaultMaxMessageSize), cfg.MaxMessageSize)
}

func TestLoadFileFromEnv(t *testing.T) {
	path := writeTempFile(t, "port: \":7000\"\n")

	cfg, err := load(envMap(map[string]string{"CONFIG_FILE": path}), nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Port)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeTempFile(t, "port: \":7000\"\nlog_level: warn\nmax_message_size: 100\n")
	env := envMap(map[string]string{
		"SERVER_PORT":      ":7001",
		"LOG_LEVEL":        "debug",
		"ALLOWED_ORIGINS":  "https://a.example, https://b.example",
		"RATE_LIMIT_BURST": "9",
	})

	cfg, err := load(env, []string{"-config", path, "-port", ":7002"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":7002", cfg.Port, "flag beats env and file")
	assert.Equal(t, "debug", cfg.LogLevel, "env beats file")
	assert.Equal(t, int64(100), cfg.MaxMessageSize, "file beats default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 9, cfg.RateLimit.Burst)
}

func TestLoadPositionalArgs(t *testing.T) {
	cfg, err := load(envMap(nil), []string{"0.0.0.0:3012", "/keys/vapid.pem"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3012", cfg.Port)
	assert.Equal(t, "/keys/vapid.pem", cfg.VAPIDKeyPath)

	cfg, err = load(envMap(map[string]string{"SERVER_PORT": ":1"}), []string{"127.0.0.1:3012"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3012", cfg.Port)
	assert.False(t, cfg.PushEnabled())

	_, err = load(envMap(nil), []string{"a", "b", "c"}, io.Discard)
	assert.Error(t, err)
}

func TestLoadRefillInterval(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"RATE_LIMIT_REFILL_INTERVAL": "2"}), nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)

	cfg, err = load(envMap(nil), []string{"-rate-limit-refill", "250ms"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.RefillInterval)
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"non-numeric size": {"MAX_MESSAGE_SIZE": "big"},
		"zero burst":       {"RATE_LIMIT_BURST": "0"},
		"bad interval":     {"RATE_LIMIT_REFILL_INTERVAL": "soon"},
		"bad timeout":      {"SHUTDOWN_TIMEOUT": "10"},
		"bad log format":   {"LOG_FORMAT": "xml"},
		"cert without key": {"TLS_CERT_FILE": "/tls/cert.pem"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(envMap(env), nil, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(envMap(nil), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, io.Discard)
	assert.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := load(envMap(nil), []string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := &Config{AllowedOrigins: []string{" https://a.example ", "", "  "}}
	cfg.Normalize()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, []string{"https://a.example"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultRateLimitBurst, cfg.RateLimit.Burst)
	assert.Equal(t, DefaultSendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TLSKeyFile = "/tls/key.pem"
	cfg.VAPIDSubscriber = "mailto:x@example.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls_cert_file")
	assert.Contains(t, err.Error(), "vapid_subscriber")

	cfg.TLSCertFile = "/tls/cert.pem"
	cfg.VAPIDKeyPath = "/keys/vapid.pem"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.TLSEnabled())
}
