package network

import "sync"

// Ref addresses a slot in a Table. A Ref is only valid for the generation it
// was issued with; once the slot is freed it resolves to nothing even if the
// slot gets reused. The zero Ref never resolves.
type Ref struct {
	index uint32
	gen   uint32
}

func (r Ref) IsZero() bool { return r.gen == 0 }

type slot struct {
	gen  uint32
	node *Node
}

// Table is the arena of attached connections.
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	live  int
}

func NewTable() *Table {
	return &Table{}
}

// Insert stores n in a free slot and returns its Ref. The Ref is also
// recorded on the node.
func (t *Table) Insert(n *Node) Ref {
	t.mu.Lock()
	var idx uint32
	if k := len(t.free); k > 0 {
		idx = t.free[k-1]
		t.free = t.free[:k-1]
	} else {
		t.slots = append(t.slots, slot{gen: 1})
		idx = uint32(len(t.slots) - 1)
	}
	t.slots[idx].node = n
	ref := Ref{index: idx, gen: t.slots[idx].gen}
	t.live++
	t.mu.Unlock()

	n.setRef(ref)
	return ref
}

// Remove frees the slot addressed by ref. Stale refs are ignored.
func (t *Table) Remove(ref Ref) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.validLocked(ref) {
		return false
	}
	s := &t.slots[ref.index]
	s.node = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	t.free = append(t.free, ref.index)
	t.live--
	return true
}

func (t *Table) Resolve(ref Ref) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.validLocked(ref) {
		return nil, false
	}
	return t.slots[ref.index].node, true
}

// ResolveAll resolves refs in order, dropping stale ones.
func (t *Table) ResolveAll(refs []Ref) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nodes := make([]*Node, 0, len(refs))
	for _, ref := range refs {
		if t.validLocked(ref) {
			nodes = append(nodes, t.slots[ref.index].node)
		}
	}
	return nodes
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

func (t *Table) validLocked(ref Ref) bool {
	if ref.gen == 0 || int(ref.index) >= len(t.slots) {
		return false
	}
	s := t.slots[ref.index]
	return s.gen == ref.gen && s.node != nil
}
