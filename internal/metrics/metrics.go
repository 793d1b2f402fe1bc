// Package metrics keeps in-process counters and gauges for the relay and
// exposes them in Prometheus' text format.
package metrics

import "sync"

// Event counter names.
const (
	ConnectionsOpened = "connections_opened"
	ConnectionsClosed = "connections_closed"
	UsernameTaken     = "username_taken"
	RoomsCreated      = "rooms_created"
	MessagesRouted    = "messages_routed"
	MessagesDropped   = "messages_dropped"
	RepliesSent       = "replies_sent"
	SendFailures      = "send_failures"
	PushSubscribed    = "push_subscribed"
	PushDelivered     = "push_delivered"
	PushFailed        = "push_failed"
	PushSkipped       = "push_skipped"
)

// Gauge names.
const (
	Connections     = "connections"
	RegisteredNodes = "registered_nodes"
	Rooms           = "rooms"
)

// Metrics is a concurrency-safe registry of monotonically increasing counters
// and point-in-time gauges. A nil *Metrics is valid and records nothing.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]uint64
	gauges   map[string]int64
}

func New() *Metrics {
	return &Metrics{
		counters: make(map[string]uint64),
		gauges:   make(map[string]int64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.counters[name] += delta
	m.mu.Unlock()
}

// Set records the current value of a gauge.
func (m *Metrics) Set(name string, value int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *Metrics) Gauge(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

// Snapshot returns copies of all counters and gauges.
func (m *Metrics) Snapshot() (counters map[string]uint64, gauges map[string]int64) {
	counters = make(map[string]uint64)
	gauges = make(map[string]int64)
	if m == nil {
		return counters, gauges
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.counters {
		counters[k] = v
	}
	for k, v := range m.gauges {
		gauges[k] = v
	}
	return counters, gauges
}
