package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/network"
)

// Protocols understood by the Router. Matching is exact and case-sensitive.
const (
	ProtocolOneToAll  = "one-to-all"
	ProtocolOneToSelf = "one-to-self"
	ProtocolOneToRoom = "one-to-room"
	ProtocolOneToOne  = "one-to-one"
)

// Fixed replies sent back to the sender.
const (
	ReplyMissingRoom      = "No field 'room' provided"
	ReplyMissingEndpoint  = "No field 'endpoint' provided"
	ReplyEndpointNotFound = "Could not find a node with that name"
	ReplyUsernameTaken    = "The username is taken"
)

const helpIndent = "                            "

// HelpText is the reply to a message with a missing or unknown protocol.
var HelpText = "Invalid protocol, valid protocols include: \n" + strings.Join([]string{
	helpIndent + "'" + ProtocolOneToSelf + "'",
	helpIndent + "'" + ProtocolOneToOne + "'",
	helpIndent + "'" + ProtocolOneToRoom + "'",
	helpIndent + "'" + ProtocolOneToAll + "'",
}, "\n")

var (
	ErrMissingRoom          = errors.New("router: no room field")
	ErrMissingEndpoint      = errors.New("router: no endpoint field")
	ErrEndpointNotFound     = errors.New("router: endpoint not found")
	ErrUnrecognizedProtocol = errors.New("router: unrecognized protocol")
)

var replies = map[error]string{
	ErrMissingRoom:          ReplyMissingRoom,
	ErrMissingEndpoint:      ReplyMissingEndpoint,
	ErrEndpointNotFound:     ReplyEndpointNotFound,
	ErrUnrecognizedProtocol: HelpText,
}

// Router delivers messages according to their protocol field.
type Router struct {
	net     *network.Network
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(net *network.Network) *Router {
	return &Router{
		net:     net,
		logger:  net.Logger(),
		metrics: net.Metrics(),
	}
}

// Handle routes raw. Problems caused by the message itself are answered
// with a fixed reply to the sender and returned as one of the Err* values.
func (r *Router) Handle(sender *network.Node, env Envelope, raw []byte) error {
	protocol, _ := env.Field(FieldProtocol)

	err := r.dispatch(sender, protocol, env, raw)
	for sentinel, text := range replies {
		if errors.Is(err, sentinel) {
			r.metrics.Inc(metrics.RepliesSent)
			if sendErr := sender.SendText(text); sendErr != nil {
				r.metrics.Inc(metrics.SendFailures)
				return errors.Join(err, fmt.Errorf("send reply: %w", sendErr))
			}
			return err
		}
	}
	if err == nil {
		r.metrics.Inc(metrics.MessagesRouted + ":" + protocol)
		r.logger.Debug("message routed", logging.Conn(sender.ID()), logging.Protocol(protocol))
	}
	return err
}

func (r *Router) dispatch(sender *network.Node, protocol string, env Envelope, raw []byte) error {
	switch protocol {
	case ProtocolOneToAll:
		return wrapSend(sender.Broadcast(raw))
	case ProtocolOneToSelf:
		return wrapSend(sender.Send(raw))
	case ProtocolOneToRoom:
		room, ok := env.Field(FieldRoom)
		if !ok {
			return ErrMissingRoom
		}
		return r.toRoom(room, env, raw)
	case ProtocolOneToOne:
		endpoint, ok := env.Field(FieldEndpoint)
		if !ok {
			return ErrMissingEndpoint
		}
		target, ok := r.net.Nodes().Lookup(endpoint)
		if !ok {
			return fmt.Errorf("%w: %q", ErrEndpointNotFound, endpoint)
		}
		return wrapSend(target.Send(raw))
	default:
		return fmt.Errorf("%w: %q", ErrUnrecognizedProtocol, protocol)
	}
}

// toRoom sends raw to every live, registered member of room except the one
// whose username equals the envelope's from field.
func (r *Router) toRoom(room string, env Envelope, raw []byte) error {
	from, hasFrom := env.Field(FieldFrom)

	var errs []error
	for _, member := range r.net.Rooms().Members(room) {
		owner, ok := member.Owner()
		if !ok {
			continue
		}
		if hasFrom && owner == from {
			continue
		}
		if err := member.Send(raw); err != nil {
			errs = append(errs, fmt.Errorf("send to %q: %w", owner, err))
		}
	}
	if len(errs) > 0 {
		r.metrics.Add(metrics.SendFailures, uint64(len(errs)))
		r.logger.Debug("room delivery incomplete", logging.Room(room), logging.Err(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}

func wrapSend(err error) error {
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
