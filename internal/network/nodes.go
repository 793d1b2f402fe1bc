package network

import (
	"fmt"
	"sync"
)

// NodeRegistry maps usernames to connections. A name stays claimed until
// Unregister is called for it; a second Register never overwrites it.
type NodeRegistry struct {
	table *Table

	mu     sync.RWMutex
	byName map[string]Ref
}

func NewNodeRegistry(table *Table) *NodeRegistry {
	return &NodeRegistry{
		table:  table,
		byName: make(map[string]Ref),
	}
}

// Register claims name for n and records it as the node's owner.
func (r *NodeRegistry) Register(name string, n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[name]; taken {
		return fmt.Errorf("%w: %q", ErrUsernameTaken, name)
	}
	r.byName[name] = n.Ref()
	n.setOwner(name)
	return nil
}

// Lookup resolves name to its live node. It reports false when the name is
// unknown or its connection has already been detached.
func (r *NodeRegistry) Lookup(name string) (*Node, bool) {
	r.mu.RLock()
	ref, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.table.Resolve(ref)
}

// Unregister releases name. Unknown names are ignored.
func (r *NodeRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	return true
}

func (r *NodeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
