package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/network"
)

var errPeerClosed = errors.New("peer closed")

// fakeHub is an in-memory transport: Broadcast reaches every open peer.
type fakeHub struct {
	mu    sync.Mutex
	peers []*fakePeer
}

type fakePeer struct {
	hub *fakeHub

	mu     sync.Mutex
	inbox  []string
	closed bool
}

func (h *fakeHub) newPeer() *fakePeer {
	p := &fakePeer{hub: h}
	h.mu.Lock()
	h.peers = append(h.peers, p)
	h.mu.Unlock()
	return p
}

func (p *fakePeer) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPeerClosed
	}
	p.inbox = append(p.inbox, string(msg))
	return nil
}

func (p *fakePeer) Broadcast(msg []byte) error {
	p.hub.mu.Lock()
	peers := append([]*fakePeer(nil), p.hub.peers...)
	p.hub.mu.Unlock()
	for _, other := range peers {
		_ = other.Send(msg)
	}
	return nil
}

func (p *fakePeer) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.inbox...)
}

type fixture struct {
	t       *testing.T
	hub     *fakeHub
	net     *network.Network
	metrics *metrics.Metrics
	relay   *Relay
}

func newFixture(t *testing.T, opts ...RelayOption) *fixture {
	t.Helper()
	m := metrics.New()
	net := network.New(logging.Discard(), m)
	t.Cleanup(func() {
		_ = net.Push().Close(context.Background())
	})
	return &fixture{
		t:       t,
		hub:     &fakeHub{},
		net:     net,
		metrics: m,
		relay:   NewRelay(net, opts...),
	}
}

// connect attaches a new connection and applies the handshake query.
func (f *fixture) connect(query string) (*network.Node, *fakePeer) {
	f.t.Helper()
	peer := f.hub.newPeer()
	node := f.net.Attach(peer)
	f.relay.Open(node, ParseParams(query))
	return node, peer
}

func (f *fixture) disconnect(node *network.Node, peer *fakePeer) {
	peer.close()
	f.relay.Close(node)
}

func (f *fixture) send(node *network.Node, msg string) error {
	return f.relay.Dispatch(node, []byte(msg))
}

func requireNoMessages(t *testing.T, p *fakePeer) {
	t.Helper()
	require.Empty(t, p.messages())
}
