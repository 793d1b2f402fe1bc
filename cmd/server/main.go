package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/rendezvous/internal/config"
	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/network"
	"github.com/Tyrowin/rendezvous/internal/router"
	"github.com/Tyrowin/rendezvous/internal/server"
	"github.com/Tyrowin/rendezvous/internal/webpush"
)

const serviceName = "rendezvous"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	logger, err := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 2
	}

	m := metrics.New()
	net := network.New(logger, m)

	var opts []router.RelayOption
	if cfg.PushEnabled() {
		if err := enablePush(cfg, net, logger); err != nil {
			logger.Error("push setup failed", logging.Err(err))
			return 1
		}
		opts = append(opts, router.WithPush())
	}

	relay := router.NewRelay(net, opts...)
	srv := server.New(cfg, relay)
	srv.Start()

	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartServer(httpServer, cfg)
	})

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return server.ShutdownServer(ctx, httpServer)
		},
		"hub": func(context.Context) error {
			return srv.Hub().Shutdown(cfg.ShutdownTimeout)
		},
		"push": func(ctx context.Context) error {
			return net.Push().Close(ctx)
		},
	})

	select {
	case code := <-wait:
		if err := g.Wait(); err != nil {
			logger.Error("server exited with error", logging.Err(err))
			return 1
		}
		logger.Info("shutdown completed", slog.Int("exit_code", code))
		return code
	case <-gctx.Done():
		logger.Error("server failed", logging.Err(g.Wait()))
		_ = srv.Hub().Shutdown(cfg.ShutdownTimeout)
		return 1
	}
}

// enablePush checks the VAPID key and installs the Web Push sender.
func enablePush(cfg *config.Config, net *network.Network, logger *slog.Logger) error {
	raw, err := os.ReadFile(cfg.VAPIDKeyPath)
	if err != nil {
		return fmt.Errorf("read VAPID key: %w", err)
	}
	keys, err := webpush.ParseKeys(raw)
	if err != nil {
		return err
	}
	if err := net.Push().SetDeliveryCredential(cfg.VAPIDKeyPath); err != nil {
		return err
	}
	net.Push().SetSender(webpush.New(webpush.Options{
		Subscriber: cfg.VAPIDSubscriber,
		TTL:        cfg.PushTTL,
	}), network.DefaultDeliveryTimeout)

	logger.Info("push notifications enabled", slog.String("vapid_public_key", keys.Public))
	return nil
}
