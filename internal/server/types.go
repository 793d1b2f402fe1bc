package server

import (
	"errors"
	"strings"
)

var (
	ErrClientClosed   = errors.New("server: client closed")
	ErrSendBufferFull = errors.New("server: send buffer full")
)

// BroadcastMessage is a payload for every open connection. Sender is only
// used for logging; it receives the message too.
type BroadcastMessage struct {
	Sender  *Client
	Payload []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
