// Package router decides where each inbound message goes.
//
// Every text message is parsed once into an Envelope and passed through a
// Chain of handlers. Two handlers exist: the PushDispatcher, keyed by the
// envelope's "action" field, and the Router, keyed by its "protocol" field.
// Both always see every message, in that order.
//
// The Relay ties the chain to the connection lifecycle: Open claims the
// username and room requested in the handshake, Dispatch routes a message,
// and Close releases the username.
package router
