// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/config"
	"github.com/hellowebapp/hellowebapp/internal/httpapi"
	"github.com/hellowebapp/hellowebapp/internal/logging"
	"github.com/hellowebapp/hellowebapp/internal/mail"
	"github.com/hellowebapp/hellowebapp/internal/observability"
	"github.com/hellowebapp/hellowebapp/internal/store"
	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

const serviceName = "hellowebapp"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the account API server and, when a metrics address is set,
the observability server with /metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("origin", "", "allowed CORS origin (\"true\" reflects any)")
	cmd.Flags().String("public-url", "", "origin used in emailed links (default: request host)")
	cmd.Flags().String("host", "", "API listen host")
	cmd.Flags().Int("port", 0, "API listen port")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations before serving")
	cmd.Flags().String("mail-driver", "", "mail driver (sendgrid or log)")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

func (d *ServeDeps) setDefaults() {
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = func(ctx context.Context, dsn string, opts store.PoolOptions, logger *slog.Logger) (Database, error) {
			return store.Open(ctx, dsn, opts, logger)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.SenderFactory == nil {
		d.SenderFactory = newSender
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if d.HTTPServerFactory == nil {
		d.HTTPServerFactory = func(addr string, handler http.Handler, logger *slog.Logger) HTTPServer {
			return httpapi.NewServer(addr, handler, logger)
		}
	}
	if d.Clock == nil {
		d.Clock = auth.SystemClock{}
	}
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until a signal arrives, ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("log_level", cfg.Log.Level).Wrap(err)
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, logging.WithLevel(level))
	logger.Info("starting server", "config", cfg)

	if cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	poolOpts := store.DefaultPoolOptions()
	poolOpts.MaxConns = cfg.Database.MaxConns
	poolOpts.MinConns = cfg.Database.MinConns
	poolOpts.ConnectAttempts = cfg.Database.ConnectAttempts
	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, poolOpts, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.HTTP.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.HTTP.MetricsAddr, db.Ping, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metrics = obsServer.Metrics()
	}

	sender, err := deps.SenderFactory(cfg.Mail, logger)
	if err != nil {
		stopAll(cfg.HTTP.ShutdownTimeout, logger, obsServer)
		return oops.With("operation", "create mail sender").Wrap(err)
	}
	sender = observability.InstrumentSender(sender, metrics)

	httpServer, err := newHTTPServer(cfg, db, sender, metrics, deps, logger)
	if err != nil {
		stopAll(cfg.HTTP.ShutdownTimeout, logger, obsServer)
		return err
	}
	httpErrCh, err := httpServer.Start()
	if err != nil {
		stopAll(cfg.HTTP.ShutdownTimeout, logger, obsServer)
		return oops.Code("HTTP_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http", logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started on " + httpServer.Addr())
	logger.Info("server ready", "addr", httpServer.Addr(), "env", cfg.Env)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopAll(cfg.HTTP.ShutdownTimeout, logger, httpServer, obsServer)
	logger.Info("shutdown complete")
	return nil
}

func newHTTPServer(
	cfg config.Config,
	db Database,
	sender mail.Sender,
	metrics *observability.Metrics,
	deps *ServeDeps,
	logger *slog.Logger,
) (HTTPServer, error) {
	svc, err := newService(cfg, db, sender, deps.Clock, logger)
	if err != nil {
		return nil, err
	}
	handler, err := httpapi.NewHandler(svc, metrics, logger, httpapi.Options{
		AppName:    auth.DefaultAppName,
		Version:    version,
		Production: cfg.IsProduction(),
		Origin:     cfg.Origin,
		PublicURL:  cfg.PublicURL,
	})
	if err != nil {
		return nil, oops.With("component", "httpapi").Wrap(err)
	}
	return deps.HTTPServerFactory(cfg.ListenAddr(), handler, logger), nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

// stopAll stops each non-nil server in order within one shared timeout.
func stopAll(timeout time.Duration, logger *slog.Logger, servers ...stopper) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			errutil.LogError(logger, "error stopping server", err)
		}
	}
}

// runAutoMigration applies pending migrations and always closes the migrator.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	logger.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
