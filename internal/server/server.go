package server

import (
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/rendezvous/internal/config"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/router"
)

// Server bundles the hub with the HTTP handlers that feed it.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// New creates a Server for relay. The hub is not running until Start.
func New(cfg *config.Config, relay *router.Relay) *Server {
	hub := NewHub(relay)
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		metrics: relay.Network().Metrics(),
		logger:  hub.logger,
		origins: newOriginPolicy(cfg.AllowedOrigins, hub.logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// Start runs the hub in a separate goroutine. It should be called before
// the HTTP server starts accepting connections.
func (s *Server) Start() {
	go s.hub.Run()
	s.logger.Info("hub started and ready to manage WebSocket connections")
}
