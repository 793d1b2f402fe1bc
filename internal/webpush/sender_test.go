package webpush

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/rendezvous/internal/logging"
)

func writeKey(t *testing.T, curve elliptic.Curve, pkcs8 bool) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)

	block := &pem.Block{Type: "EC PRIVATE KEY"}
	if pkcs8 {
		block.Type = "PRIVATE KEY"
		block.Bytes, err = x509.MarshalPKCS8PrivateKey(key)
	} else {
		block.Bytes, err = x509.MarshalECPrivateKey(key)
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vapid.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func subscriptionFor(t *testing.T, endpoint string) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]any{
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			"auth":   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	require.NoError(t, err)
	return string(raw)
}

type pushEndpoint struct {
	mu      sync.Mutex
	headers []http.Header
	status  int
}

func (e *pushEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	e.headers = append(e.headers, r.Header.Clone())
	status := e.status
	e.mu.Unlock()
	w.WriteHeader(status)
}

func TestParseKeys(t *testing.T) {
	for _, pkcs8 := range []bool{false, true} {
		raw, err := os.ReadFile(writeKey(t, elliptic.P256(), pkcs8))
		require.NoError(t, err)

		keys, err := ParseKeys(raw)
		require.NoError(t, err)

		priv, err := base64.RawURLEncoding.DecodeString(keys.Private)
		require.NoError(t, err)
		assert.Len(t, priv, 32)
		pub, err := base64.RawURLEncoding.DecodeString(keys.Public)
		require.NoError(t, err)
		assert.Len(t, pub, 65)
		assert.Equal(t, byte(0x04), pub[0])
	}
}

func TestParseKeysRejects(t *testing.T) {
	_, err := ParseKeys([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	raw, err := os.ReadFile(writeKey(t, elliptic.P384(), false))
	require.NoError(t, err)
	_, err = ParseKeys(raw)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParseKeys(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeliver(t *testing.T) {
	endpoint := &pushEndpoint{status: http.StatusCreated}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	var logs bytes.Buffer
	log, err := logging.NewWithWriter(&logs, "test", "debug", "text")
	require.NoError(t, err)
	ctx := logging.WithContext(context.Background(), log)

	s := New(Options{Subscriber: "ops@example.com"})
	keyPath := writeKey(t, elliptic.P256(), false)

	err = s.Deliver(ctx, subscriptionFor(t, srv.URL), keyPath, []byte(`{"body":"hi"}`))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "push accepted")

	endpoint.mu.Lock()
	defer endpoint.mu.Unlock()
	require.Len(t, endpoint.headers, 1)
	h := endpoint.headers[0]
	assert.Equal(t, "3600", h.Get("TTL"))
	assert.Equal(t, "aes128gcm", h.Get("Content-Encoding"))
	assert.True(t, strings.HasPrefix(h.Get("Authorization"), "vapid t="), h.Get("Authorization"))
}

func TestDeliverRejected(t *testing.T) {
	srv := httptest.NewServer(&pushEndpoint{status: http.StatusGone})
	defer srv.Close()

	s := New(Options{TTL: 60})
	err := s.Deliver(context.Background(), subscriptionFor(t, srv.URL), writeKey(t, elliptic.P256(), true), []byte("x"))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestDeliverBadInput(t *testing.T) {
	s := New(Options{})

	err := s.Deliver(context.Background(), "{", "/nonexistent", nil)
	assert.ErrorIs(t, err, ErrInvalidSubscription)

	err = s.Deliver(context.Background(), `{"endpoint":"https://x"}`, "/nonexistent", nil)
	assert.ErrorIs(t, err, ErrInvalidSubscription)

	err = s.Deliver(context.Background(), subscriptionFor(t, "https://push.invalid"), filepath.Join(t.TempDir(), "missing.pem"), nil)
	assert.Error(t, err)
}

func TestKeysAreCached(t *testing.T) {
	s := New(Options{})
	path := writeKey(t, elliptic.P256(), false)

	first, err := s.loadKeys(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := s.loadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
