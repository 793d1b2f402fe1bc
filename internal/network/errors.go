package network

import "errors"

var (
	// ErrUsernameTaken is returned when registering a name that is already claimed.
	ErrUsernameTaken = errors.New("network: username taken")
	// ErrRoomNotFound means Join was called before CreateRoom.
	ErrRoomNotFound = errors.New("network: room not found")
	// ErrNotRegistered is returned for operations that need a claimed username.
	ErrNotRegistered = errors.New("network: node has no username")
	// ErrCredentialAlreadySet is returned when the push credential is configured twice.
	ErrCredentialAlreadySet = errors.New("network: push credential already set")
	// ErrNoSubscription means the target has no push subscription on file.
	ErrNoSubscription = errors.New("network: no push subscription")
)
