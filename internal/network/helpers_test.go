package network

import (
	"sync"
)

type recordingPeer struct {
	mu        sync.Mutex
	sent      [][]byte
	broadcast [][]byte
}

func (p *recordingPeer) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, append([]byte(nil), msg...))
	return nil
}

func (p *recordingPeer) Broadcast(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, append([]byte(nil), msg...))
	return nil
}

func (p *recordingPeer) Sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, m := range p.sent {
		out[i] = string(m)
	}
	return out
}
