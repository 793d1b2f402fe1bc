package router

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/network"
)

// Push actions.
const (
	ActionSubscribePush     = "subscribe-push"
	ActionConnectionRequest = "connection-request"
)

var ErrMissingSubscriptionData = errors.New("router: no subscriptionData field")

// PushDispatcher handles the push sub-protocol selected by the action field.
// It never replies to the sender; problems are only logged.
type PushDispatcher struct {
	store  *network.PushStore
	logger *slog.Logger
}

func NewPushDispatcher(net *network.Network) *PushDispatcher {
	return &PushDispatcher{
		store:  net.Push(),
		logger: net.Logger(),
	}
}

func (p *PushDispatcher) Handle(sender *network.Node, env Envelope, _ []byte) error {
	action, _ := env.Field(FieldAction)

	switch action {
	case ActionSubscribePush:
		data, ok := env.Field(FieldSubscriptionData)
		if !ok {
			p.logger.Debug("no subscription data", logging.Conn(sender.ID()))
			return ErrMissingSubscriptionData
		}
		if err := p.store.Subscribe(sender, data); err != nil {
			p.logger.Debug("subscription rejected", logging.Conn(sender.ID()), logging.Err(err))
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil

	case ActionConnectionRequest:
		endpoint, ok := env.Field(FieldEndpoint)
		if !ok {
			p.logger.Debug("no endpoint for connection request", logging.Conn(sender.ID()))
			return ErrMissingEndpoint
		}
		from, ok := sender.Owner()
		if !ok {
			p.logger.Debug("connection request from unregistered node", logging.Conn(sender.ID()))
			return fmt.Errorf("connection request: %w", network.ErrNotRegistered)
		}
		err := p.store.RequestDelivery(from, endpoint)
		if errors.Is(err, network.ErrNoSubscription) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("connection request: %w", err)
		}
		return nil

	default:
		return nil
	}
}
