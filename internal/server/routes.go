package server

import (
	"net/http"

	"github.com/Tyrowin/rendezvous/internal/metrics"
)

// Routes returns a ServeMux with all application routes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.RootHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/test", TestPageHandler)
	mux.Handle("/metrics", metrics.PrometheusHandler(s.metrics))
	return mux
}
