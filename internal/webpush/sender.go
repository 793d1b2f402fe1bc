// Package webpush delivers connection-request notifications through the
// Web Push protocol, signing each request with a VAPID key read from disk.
package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"

	"github.com/Tyrowin/rendezvous/internal/logging"
)

// DefaultTTL is how long the push service keeps an undelivered notification.
const DefaultTTL = 3600

var (
	ErrInvalidSubscription = errors.New("webpush: invalid subscription")
	ErrInvalidKey          = errors.New("webpush: invalid VAPID key")
	ErrRejected            = errors.New("webpush: push service rejected notification")
)

// Keys is a VAPID key pair in the encoding the push protocol expects:
// unpadded base64url of the raw private scalar and of the uncompressed
// public point.
type Keys struct {
	Private string
	Public  string
}

type Options struct {
	Subscriber string
	TTL        int
	HTTPClient wp.HTTPClient
}

// Sender implements network.PushSender.
type Sender struct {
	subscriber string
	ttl        int
	client     wp.HTTPClient

	mu   sync.Mutex
	keys map[string]Keys
}

func New(opts Options) *Sender {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{
		subscriber: opts.Subscriber,
		ttl:        opts.TTL,
		client:     opts.HTTPClient,
		keys:       make(map[string]Keys),
	}
}

// Deliver sends payload to the subscription described by descriptor, a JSON
// PushSubscription. credential is the path of a PEM encoded P-256 key.
// Logging goes to the logger carried by ctx.
func (s *Sender) Deliver(ctx context.Context, descriptor, credential string, payload []byte) error {
	var sub wp.Subscription
	if err := json.Unmarshal([]byte(descriptor), &sub); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubscription, err)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return fmt.Errorf("%w: missing endpoint or keys", ErrInvalidSubscription)
	}

	keys, err := s.loadKeys(credential)
	if err != nil {
		return err
	}

	resp, err := wp.SendNotificationWithContext(ctx, payload, &sub, &wp.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		TTL:             s.ttl,
		VAPIDPublicKey:  keys.Public,
		VAPIDPrivateKey: keys.Private,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	}
	logging.FromContext(ctx).Debug("push accepted", slog.Int("status", resp.StatusCode), logging.Addr(sub.Endpoint))
	return nil
}

func (s *Sender) loadKeys(path string) (Keys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[path]; ok {
		return k, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keys{}, fmt.Errorf("read VAPID key: %w", err)
	}
	k, err := ParseKeys(raw)
	if err != nil {
		return Keys{}, err
	}
	s.keys[path] = k
	return k, nil
}

// ParseKeys derives a VAPID key pair from a PEM encoded P-256 private key in
// SEC 1 ("EC PRIVATE KEY") or PKCS #8 ("PRIVATE KEY") form.
func ParseKeys(pemBytes []byte) (Keys, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return Keys{}, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}

	var (
		key *ecdsa.PrivateKey
		err error
	)
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		var parsed any
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err == nil {
			var ok bool
			if key, ok = parsed.(*ecdsa.PrivateKey); !ok {
				err = errors.New("not an ECDSA key")
			}
		}
	default:
		err = fmt.Errorf("unsupported PEM type %q", block.Type)
	}
	if err != nil {
		return Keys{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	ek, err := key.ECDH()
	if err != nil {
		return Keys{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if ek.Curve() != ecdh.P256() {
		return Keys{}, fmt.Errorf("%w: curve must be P-256", ErrInvalidKey)
	}
	return Keys{
		Private: base64.RawURLEncoding.EncodeToString(ek.Bytes()),
		Public:  base64.RawURLEncoding.EncodeToString(ek.PublicKey().Bytes()),
	}, nil
}
