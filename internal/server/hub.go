package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/router"
)

// Hub manages all WebSocket client connections. Registration attaches the
// client to the relay's network, and broadcasts reach every open client.
type Hub struct {
	relay  *router.Relay
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewHub(relay *router.Relay) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		relay:      relay,
		logger:     relay.Network().Logger(),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a client to the hub, which starts its pumps. It reports
// false when the hub is shutting down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Broadcast queues payload for every open client.
func (h *Hub) Broadcast(msg BroadcastMessage) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.ctx.Done():
		return ErrClientClosed
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// safeSend enqueues message without blocking. It returns ErrSendBufferFull
// when the client cannot keep up.
func (h *Hub) safeSend(client *Client, message []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic in safeSend", slog.Any("panic", r))
			err = ErrClientClosed
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return ErrClientClosed
	}

	select {
	case client.send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Run starts the hub's event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.attach(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				close(client.send)
				h.logger.Debug("client unregistered", logging.Addr(client.addr), slog.Int("clients", clientCount))
			} else {
				h.mutex.Unlock()
			}

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// attach registers the client, applies its handshake and starts its pumps.
func (h *Hub) attach(client *Client) {
	client.node = h.relay.Network().Attach(client)

	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.logger.Debug("client registered",
		logging.Addr(client.addr),
		logging.Conn(client.node.ID()),
		slog.Int("clients", clientCount),
	)

	h.relay.Open(client.node, client.params)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	clients := h.getClientSnapshot()

	log := h.logger
	if msg.Sender != nil {
		log = log.With(logging.Addr(msg.Sender.addr))
	}
	log.Debug("broadcasting message", slog.Int("clients", len(clients)))

	var failed []*Client
	for _, client := range clients {
		if err := h.safeSend(client, msg.Payload); err != nil {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients drops clients whose buffers are full and closes their
// send channels, which makes their write pumps close the connection.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			h.logger.Warn("client removed due to full send buffer", logging.Addr(client.addr))
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		delete(h.clients, client)
		client.closed = true
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn("error closing client connection", logging.Addr(client.addr), logging.Err(err))
			}
		}
	}

	h.logger.Info("closed client connections", slog.Int("count", len(clients)))
}

// Shutdown stops the hub and waits for every client goroutine to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
