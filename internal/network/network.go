package network

import (
	"log/slog"

	"github.com/Tyrowin/rendezvous/internal/metrics"
)

// Network is the process-wide registry context shared by every connection.
type Network struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	table *Table
	nodes *NodeRegistry
	rooms *RoomRegistry
	push  *PushStore
}

func New(logger *slog.Logger, m *metrics.Metrics) *Network {
	if logger == nil {
		logger = slog.Default()
	}
	table := NewTable()
	return &Network{
		logger:  logger,
		metrics: m,
		table:   table,
		nodes:   NewNodeRegistry(table),
		rooms:   NewRoomRegistry(table),
		push:    NewPushStore(logger, m),
	}
}

func (n *Network) Nodes() *NodeRegistry { return n.nodes }
func (n *Network) Rooms() *RoomRegistry { return n.rooms }
func (n *Network) Push() *PushStore     { return n.push }
func (n *Network) Logger() *slog.Logger { return n.logger }

func (n *Network) Metrics() *metrics.Metrics { return n.metrics }

// Attach makes a new connection addressable and returns its node.
func (n *Network) Attach(peer Peer) *Node {
	node := NewNode(peer)
	n.table.Insert(node)
	n.metrics.Inc(metrics.ConnectionsOpened)
	n.RecordState()
	return node
}

// Detach removes the connection from the table. Any Ref to it held by a
// registry resolves to nothing from now on.
func (n *Network) Detach(node *Node) {
	if n.table.Remove(node.Ref()) {
		n.metrics.Inc(metrics.ConnectionsClosed)
	}
	n.RecordState()
}

// Size is the number of registered usernames.
func (n *Network) Size() int {
	return n.nodes.Count()
}

// Connections is the number of attached connections, registered or not.
func (n *Network) Connections() int {
	return n.table.Len()
}

// RecordState refreshes the state gauges.
func (n *Network) RecordState() {
	n.metrics.Set(metrics.Connections, int64(n.table.Len()))
	n.metrics.Set(metrics.RegisteredNodes, int64(n.nodes.Count()))
	n.metrics.Set(metrics.Rooms, int64(n.rooms.Count()))
}
