package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
)

// DefaultDeliveryTimeout bounds a single push delivery.
const DefaultDeliveryTimeout = 4 * time.Second

// PushSender delivers a payload to the push service behind descriptor,
// signing the request with the key referenced by credential.
type PushSender interface {
	Deliver(ctx context.Context, descriptor, credential string, payload []byte) error
}

type pushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type pushPayload struct {
	Body    string       `json:"body"`
	Sender  string       `json:"sender"`
	Actions []pushAction `json:"actions"`
}

// ConnectionRequestPayload is the notification shown to a user that another
// user wants to connect with.
func ConnectionRequestPayload(from string) ([]byte, error) {
	return json.Marshal(pushPayload{
		Body:   from + "\nwants to connect with you",
		Sender: from,
		Actions: []pushAction{
			{Action: "allowConnection", Title: "✔️ Allow"},
			{Action: "denyConnection", Title: "✖️ Deny"},
		},
	})
}

// PushStore keeps the push subscription of every user that sent one, so
// that users can be notified while they are disconnected.
type PushStore struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	subs map[string]string

	credMu     sync.RWMutex
	credential string
	credSet    bool

	sender  PushSender
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPushStore(logger *slog.Logger, m *metrics.Metrics) *PushStore {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PushStore{
		logger:  logger,
		metrics: m,
		subs:    make(map[string]string),
		timeout: DefaultDeliveryTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetSender installs the delivery collaborator. A zero timeout keeps the default.
func (s *PushStore) SetSender(sender PushSender, timeout time.Duration) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.sender = sender
	if timeout > 0 {
		s.timeout = timeout
	}
}

// SetDeliveryCredential records the path of the key used to sign pushes.
// It can only be called once.
func (s *PushStore) SetDeliveryCredential(path string) error {
	s.credMu.Lock()
	defer s.credMu.Unlock()

	if s.credSet {
		return ErrCredentialAlreadySet
	}
	s.credential = path
	s.credSet = true
	return nil
}

func (s *PushStore) DeliveryCredential() string {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.credential
}

// Subscribe stores descriptor for the node's username, replacing any earlier one.
func (s *PushStore) Subscribe(n *Node, descriptor string) error {
	owner, ok := n.Owner()
	if !ok {
		return ErrNotRegistered
	}

	s.mu.Lock()
	s.subs[owner] = descriptor
	s.mu.Unlock()

	n.setSubscription(descriptor)
	s.metrics.Inc(metrics.PushSubscribed)
	s.logger.Info("node updated its subscription data", logging.User(owner), logging.Conn(n.ID()))
	return nil
}

func (s *PushStore) Subscription(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.subs[name]
	return d, ok
}

// RequestDelivery notifies to that from wants to connect. Delivery happens in
// the background and is best effort: failures are logged, never returned.
// It returns ErrNoSubscription when to has no subscription on file.
func (s *PushStore) RequestDelivery(from, to string) error {
	descriptor, ok := s.Subscription(to)
	if !ok {
		s.metrics.Inc(metrics.PushSkipped)
		return fmt.Errorf("%w: %q", ErrNoSubscription, to)
	}

	s.credMu.RLock()
	sender, credential, timeout := s.sender, s.credential, s.timeout
	s.credMu.RUnlock()
	if sender == nil {
		s.metrics.Inc(metrics.PushSkipped)
		s.logger.Warn("push requested but no sender is configured", logging.User(to))
		return nil
	}

	payload, err := ConnectionRequestPayload(from)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log := s.logger.With(slog.String("from", from), slog.String("to", to))
		ctx, cancel := context.WithTimeout(logging.WithContext(s.ctx, log), timeout)
		defer cancel()

		log.Info("sending push")
		if err := sender.Deliver(ctx, descriptor, credential, payload); err != nil {
			s.metrics.Inc(metrics.PushFailed)
			log.Warn("push delivery failed", logging.Err(err))
			return
		}
		s.metrics.Inc(metrics.PushDelivered)
		log.Info("push delivered")
	}()
	return nil
}

// Wait blocks until every in-flight delivery has returned.
func (s *PushStore) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight deliveries and waits for them.
func (s *PushStore) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
