// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/auth/postgres"
	"github.com/hellowebapp/hellowebapp/internal/config"
	"github.com/hellowebapp/hellowebapp/internal/mail"
	"github.com/hellowebapp/hellowebapp/internal/observability"
	"github.com/hellowebapp/hellowebapp/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Open
	DatabaseFactory func(ctx context.Context, dsn string, opts store.PoolOptions, logger *slog.Logger) (Database, error)

	// MigratorFactory creates the migrator used when auto-migrate is on.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// SenderFactory creates the mail sender.
	// Default: newSender
	SenderFactory func(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// HTTPServerFactory creates the API server.
	// Default: httpapi.NewServer
	HTTPServerFactory func(addr string, handler http.Handler, logger *slog.Logger) HTTPServer

	// Clock supplies the time to every expiry computation.
	// Default: auth.SystemClock
	Clock auth.Clock
}

// Database is the pool the server runs on. *pgxpool.Pool satisfies it.
type Database interface {
	postgres.DB
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator wraps the methods serve uses from store.Migrator.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// HTTPServer wraps the methods used from httpapi.Server.
type HTTPServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
