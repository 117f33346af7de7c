package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/fundingintake/internal/config"
	"github.com/gabrielmiguelok/fundingintake/internal/intake"
	"github.com/gabrielmiguelok/fundingintake/pkg/core"
	"github.com/gabrielmiguelok/fundingintake/pkg/health"
	"github.com/gabrielmiguelok/fundingintake/pkg/limits"
	"github.com/gabrielmiguelok/fundingintake/pkg/live"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
	"github.com/gabrielmiguelok/fundingintake/pkg/metrics"
	"github.com/gabrielmiguelok/fundingintake/pkg/relay"
	"github.com/gabrielmiguelok/fundingintake/pkg/router"
	"github.com/gabrielmiguelok/fundingintake/pkg/shutdown"
	"github.com/gabrielmiguelok/fundingintake/pkg/uploads"
	"github.com/gabrielmiguelok/fundingintake/pkg/wizard"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.logLevel != "" {
				cfg.Server.LogLevel = opts.logLevel
			}
			return serve(cmd.Context(), cfg, newLogger(cfg.Server))
		},
	}
}

func newLogger(cfg config.Server) logging.Logger {
	opts := []logging.Option{logging.WithLevel(cfg.LogLevel), logging.WithOutput(os.Stdout)}
	if cfg.LogFormat == "console" {
		opts = append(opts, logging.WithConsole())
	}
	logger := logging.New(opts...)
	logging.SetDefault(logger)
	return logger
}

// app is the assembled service.
type app struct {
	handler http.Handler
	live    *live.Handler
}

func newApp(cfg config.Config, logger logging.Logger, reg prometheus.Registerer) (*app, error) {
	m, err := metrics.NewMetrics("intake", reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if err := cfg.Relay.Validate(); err != nil {
		logger.Warn("relay is not configured; submissions will fail until it is", logging.Err(err))
	}

	forwarder := relay.NewForwarder(cfg.Relay, relay.WithObserver(m))
	relayHandler := relay.NewHandler(forwarder,
		relay.WithLogger(logger),
		relay.WithUploadConfig(uploads.DocumentConfig()),
	)

	var submitter wizard.Submitter = forwarder
	if cfg.Live.RelayURL != "" {
		submitter = relay.NewClient(cfg.Live.RelayURL, nil)
		logger.Info("wizard submits through remote relay", logging.String("relay_url", cfg.Live.RelayURL))
	}

	registry := core.NewComponentRegistry()
	intake.Register(registry, submitter, m, logger)

	liveHandler := live.NewHandler(registry, intake.ComponentName,
		live.WithLogger(logger),
		live.WithObserver(m),
		live.WithWebSocketConfig(cfg.Live.WebSocketConfig()),
	)

	checker := health.NewChecker(Version)
	checker.AddCriticalCheck("relay_config", health.ConfigCheck(cfg.Relay.Validate), time.Second)
	checker.AddCheck("live_sessions", health.CapacityCheck("live sessions", liveHandler.Count, cfg.Live.MaxSessions), time.Second)

	handler := router.New(router.Config{
		Logger:        logger,
		Relay:         relayHandler,
		Live:          liveHandler,
		LiveLimiter:   limits.NewConnectionLimiter(cfg.Live.MaxSessionsPerIP, cfg.Live.MaxSessions),
		Health:        checker,
		Metrics:       m.Handler(),
		SecureHeaders: router.DefaultSecureHeadersConfig(),
		RateLimit:     cfg.Server.RateLimit,
	})

	return &app{handler: handler, live: liveHandler}, nil
}

func serve(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	a, err := newApp(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	sh := shutdown.NewHandler(shutdown.Config{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	sh.Register(shutdown.HTTPServerHook("http", srv))
	sh.RegisterFunc("live", shutdown.PriorityLive, a.live.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.String("addr", srv.Addr), logging.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			_ = sh.Shutdown()
		}
	}()

	waitErr := sh.Wait(ctx)
	select {
	case err := <-serveErr:
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	default:
	}
	if waitErr != nil {
		return waitErr
	}
	logger.Info("stopped")
	return nil
}
