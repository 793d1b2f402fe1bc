package router

import (
	"errors"

	"github.com/Tyrowin/rendezvous/internal/network"
)

// Handler handles one inbound message sent by node.
type Handler interface {
	Handle(node *network.Node, env Envelope, raw []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(node *network.Node, env Envelope, raw []byte) error

func (f HandlerFunc) Handle(node *network.Node, env Envelope, raw []byte) error {
	return f(node, env, raw)
}

// Chain runs every handler in order. A handler's error does not stop the
// ones after it; all errors are joined.
type Chain []Handler

func (c Chain) Handle(node *network.Node, env Envelope, raw []byte) error {
	var errs []error
	for _, h := range c {
		if h == nil {
			continue
		}
		if err := h.Handle(node, env, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
