package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tyrowin/rendezvous/internal/config"
)

// CreateServer creates an HTTP server for handler with production timeouts.
// WriteTimeout stays unset because upgraded connections are hijacked and
// manage their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer listens until the server is shut down, serving TLS when the
// configuration names a certificate. A graceful shutdown returns nil.
func StartServer(server *http.Server, cfg *config.Config) error {
	var err error
	if cfg.TLSEnabled() {
		slog.Info("server listening", slog.String("addr", server.Addr), slog.Bool("tls", true))
		err = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		slog.Info("server listening", slog.String("addr", server.Addr), slog.Bool("tls", false))
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// requests until ctx is done.
func ShutdownServer(ctx context.Context, server *http.Server) error {
	slog.Info("shutting down HTTP server")

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", slog.Any("error", err))
		return err
	}

	slog.Info("HTTP server shutdown completed")
	return nil
}
