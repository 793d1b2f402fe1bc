// Package server implements the WebSocket transport of the relay.
//
// The Hub tracks open connections and fans out broadcasts, each Client runs
// the read and write pumps of one connection and implements network.Peer,
// and the HTTP handlers upgrade requests, serve the health check, the
// metrics endpoint and a small test page.
package server
