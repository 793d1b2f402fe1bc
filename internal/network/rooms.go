package network

import (
	"fmt"
	"sync"
)

// Room is a named member list. Rooms are never deleted, even when every
// member has left.
type Room struct {
	Name    string
	Members []Ref
}

// RoomRegistry maps room names to rooms.
type RoomRegistry struct {
	table *Table

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomRegistry(table *Table) *RoomRegistry {
	return &RoomRegistry{
		table: table,
		rooms: make(map[string]*Room),
	}
}

// CreateRoom adds an empty room called name unless it already exists. It
// reports whether a room was created.
func (r *RoomRegistry) CreateRoom(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[name]; ok {
		return false
	}
	r.rooms[name] = &Room{Name: name}
	return true
}

// Join appends n to the room's members. The room must exist. Joining twice
// adds the node twice.
func (r *RoomRegistry) Join(name string, n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	room.Members = append(room.Members, n.Ref())
	return nil
}

// Lookup returns a copy of the named room.
func (r *RoomRegistry) Lookup(name string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return Room{}, false
	}
	return Room{
		Name:    room.Name,
		Members: append([]Ref(nil), room.Members...),
	}, true
}

// Members returns the live members of the named room in join order.
// Members whose connection has gone away are skipped.
func (r *RoomRegistry) Members(name string) []*Node {
	room, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	return r.table.ResolveAll(room.Members)
}

func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
