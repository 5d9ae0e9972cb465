// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/parley/internal/bridge"
	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/config"
	"github.com/holomush/parley/internal/core"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/internal/generation"
	"github.com/holomush/parley/internal/logging"
	"github.com/holomush/parley/internal/observability"
	"github.com/holomush/parley/internal/presentation"
	"github.com/holomush/parley/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dialogue service",
		Long: `Run the dialogue service: accept game-server commands over HTTP, drive
conversations against the generation backend, and send player output back
as send_chat commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd)
		},
	}
}

// runServe runs the service until ctx is cancelled or a component fails.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("parley", version, cfg.Log.Format, cfg.Log.Level)

	fwd, err := newForwarder(cfg)
	if err != nil {
		return err
	}

	// probe is assigned before any server starts
	var probe *observability.HealthProbe
	ready := func() bool { return probe != nil && probe.Ready() }

	var obs *observability.Server
	var reg prometheus.Registerer
	if cfg.Server.MetricsAddr != "" {
		obs = observability.NewServer(cfg.Server.MetricsAddr, ready,
			dialogue.RegisterMetrics,
			command.RegisterMetrics,
			generation.RegisterMetrics,
			telemetry.RegisterMetrics,
			bridge.RegisterMetrics,
		)
		obs.Metrics().BuildInfo.WithLabelValues(version).Set(1)
		reg = obs.Registerer()
	}

	chatWorkers := core.NewPool(core.PoolConfig{Workers: 1, QueueSize: bridge.DefaultQueueSize})
	defer chatWorkers.Close()

	broadcaster := core.NewBroadcaster()
	sink := presentation.Multi{
		presentation.NewBroadcastSink(broadcaster),
		presentation.NewChatSink(bridge.NewChatForwarder(ctx, fwd, chatWorkers)),
	}

	svc, err := newService(cfg, sink, reg)
	if err != nil {
		return err
	}
	defer svc.Close()

	queue := bridge.NewQueue(bridge.DefaultQueueSize)
	defer queue.Close()

	router, err := bridge.NewDialogueRouter(svc.orchestrator, svc.dispatcher, fwd)
	if err != nil {
		//nolint:wrapcheck // coded dependency error
		return err
	}
	consumer, err := bridge.NewConsumer(queue, router, svc.loop)
	if err != nil {
		//nolint:wrapcheck // coded dependency error
		return err
	}

	var gauge prometheus.Gauge
	if obs != nil {
		gauge = obs.Metrics().BackendUp
	}
	probe = observability.NewHealthProbe(svc.client.Health, 0, gauge)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.loop.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return probe.Run(gctx) })

	intake := bridge.NewServer(cfg.Server.CommandAddr,
		bridge.NewIntake(queue, bridge.WithEventStream(broadcaster)))
	servers := []namedServer{{"command", intake}}
	if obs != nil {
		servers = append(servers, namedServer{"observability", obs})
	}
	for _, s := range servers {
		if err := startServer(gctx, g, s.name, s.srv); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}

	cmd.Printf("parley serving commands on %s\n", intake.Addr())
	slog.Info("parley ready",
		"command_addr", intake.Addr(),
		"metrics_addr", cfg.Server.MetricsAddr,
		"generation_endpoint", cfg.Generation.Endpoint,
	)

	err = g.Wait()
	slog.Info("shutdown complete")
	//nolint:wrapcheck // errors are coded where they originate
	return err
}

// lifecycle is a server started and stopped by runServe.
type lifecycle interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
}

type namedServer struct {
	name string
	srv  lifecycle
}

// startServer starts srv and registers goroutines that surface serve
// errors and stop srv once ctx is done.
func startServer(ctx context.Context, g *errgroup.Group, name string, srv lifecycle) error {
	errCh, err := srv.Start()
	if err != nil {
		return oops.With("server", name).Wrapf(err, "start %s server", name)
	}

	g.Go(func() error {
		select {
		case serveErr, ok := <-errCh:
			if ok && serveErr != nil {
				return oops.With("server", name).Wrapf(serveErr, "%s server failed", name)
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			slog.Warn("error stopping server", "server", name, "error", err)
		}
		return nil
	})
	return nil
}

// newForwarder returns the HTTP forwarder when a URL is configured, or the
// logging forwarder.
func newForwarder(cfg *config.Config) (bridge.Forwarder, error) {
	if cfg.Server.ForwardURL == "" {
		return bridge.LogForwarder{}, nil
	}
	fwd, err := bridge.NewHTTPForwarder(cfg.Server.ForwardURL, nil)
	if err != nil {
		//nolint:wrapcheck // coded forwarder error
		return nil, err
	}
	return fwd, nil
}
