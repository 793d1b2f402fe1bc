package router

import (
	"errors"
	"log/slog"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/network"
)

// Relay is what the transport talks to: it registers connections on open,
// runs every inbound message through the handler chain and cleans up on close.
type Relay struct {
	net     *network.Network
	logger  *slog.Logger
	metrics *metrics.Metrics
	chain   Chain
}

type RelayOption func(*Relay)

// WithPush installs the push action dispatcher ahead of the protocol router.
func WithPush() RelayOption {
	return func(r *Relay) {
		r.chain = append(Chain{NewPushDispatcher(r.net)}, r.chain...)
	}
}

func NewRelay(net *network.Network, opts ...RelayOption) *Relay {
	r := &Relay{
		net:     net,
		logger:  net.Logger(),
		metrics: net.Metrics(),
		chain:   Chain{New(net)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Network() *network.Network { return r.net }

// Open applies the handshake parameters of a freshly attached node.
func (r *Relay) Open(node *network.Node, p Params) {
	log := r.logger.With(logging.Conn(node.ID()))

	if p.HasUser {
		err := r.net.Nodes().Register(p.User, node)
		switch {
		case errors.Is(err, network.ErrUsernameTaken):
			r.metrics.Inc(metrics.UsernameTaken)
			log.Info("username is taken", logging.User(p.User))
			if sendErr := node.SendText(ReplyUsernameTaken); sendErr != nil {
				r.metrics.Inc(metrics.SendFailures)
				log.Debug("could not send reply", logging.Err(sendErr))
			}
		case err != nil:
			log.Error("register failed", logging.User(p.User), logging.Err(err))
		default:
			log.Info("node registered", logging.User(p.User))
		}
	}

	if p.HasRoom {
		if r.net.Rooms().CreateRoom(p.Room) {
			r.metrics.Inc(metrics.RoomsCreated)
			log.Info("room created", logging.Room(p.Room))
		}
		if err := r.net.Rooms().Join(p.Room, node); err != nil {
			log.Error("join failed", logging.Room(p.Room), logging.Err(err))
		}
	}

	r.net.RecordState()
	r.logger.Info("connection opened", slog.Int("nodes", r.net.Size()), slog.Int("connections", r.net.Connections()))
}

// Dispatch runs raw through the chain. The returned error is informational;
// any reply owed to the sender has already been sent.
func (r *Relay) Dispatch(node *network.Node, raw []byte) error {
	env := ParseEnvelope(raw)
	err := r.chain.Handle(node, env, raw)
	if err != nil {
		r.metrics.Inc(metrics.MessagesDropped)
		r.logger.Debug("message not fully delivered", logging.Conn(node.ID()), logging.Err(err))
	}
	return err
}

// Close releases the node's username and detaches it. Room memberships are
// left in place and skipped once they no longer resolve.
func (r *Relay) Close(node *network.Node) {
	if owner, ok := node.Owner(); ok {
		r.net.Nodes().Unregister(owner)
	}
	r.net.Detach(node)
	r.logger.Info("connection closed", logging.Conn(node.ID()), slog.Int("nodes", r.net.Size()), slog.Int("connections", r.net.Connections()))
}
