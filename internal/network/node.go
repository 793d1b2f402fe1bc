package network

import (
	"sync"

	"github.com/google/uuid"
)

// Peer is the transport side of a connection.
type Peer interface {
	// Send queues msg for this connection only.
	Send(msg []byte) error
	// Broadcast queues msg for every open connection, this one included.
	Broadcast(msg []byte) error
}

// Node is the registry-side handle of one live connection. Its username slot
// stays empty until NodeRegistry.Register succeeds.
type Node struct {
	id   string
	peer Peer

	mu           sync.RWMutex
	ref          Ref
	owner        string
	hasOwner     bool
	subscription string
}

// NewNode wraps a transport peer. The node is not addressable until it is
// attached to a Network.
func NewNode(peer Peer) *Node {
	return &Node{
		id:   uuid.NewString(),
		peer: peer,
	}
}

// ID is a unique identifier used for logging.
func (n *Node) ID() string { return n.id }

func (n *Node) Ref() Ref {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ref
}

func (n *Node) setRef(ref Ref) {
	n.mu.Lock()
	n.ref = ref
	n.mu.Unlock()
}

// Owner returns the username claimed by this node, if any.
func (n *Node) Owner() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.owner, n.hasOwner
}

func (n *Node) setOwner(name string) {
	n.mu.Lock()
	n.owner = name
	n.hasOwner = true
	n.mu.Unlock()
}

// Subscription returns the last push descriptor recorded for this node.
func (n *Node) Subscription() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.subscription, n.subscription != ""
}

func (n *Node) setSubscription(descriptor string) {
	n.mu.Lock()
	n.subscription = descriptor
	n.mu.Unlock()
}

func (n *Node) Send(msg []byte) error {
	return n.peer.Send(msg)
}

// SendText is Send for fixed server replies.
func (n *Node) SendText(text string) error {
	return n.peer.Send([]byte(text))
}

func (n *Node) Broadcast(msg []byte) error {
	return n.peer.Broadcast(msg)
}
