// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// Command api is the entry point for the Catalyst HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services, realtime hub, and HTTP handlers.
//  7. Start the session sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalysthq/catalyst/internal/api"
	"github.com/catalysthq/catalyst/internal/notifications"
	"github.com/catalysthq/catalyst/internal/platform/config"
	"github.com/catalysthq/catalyst/internal/platform/constants"
	"github.com/catalysthq/catalyst/internal/platform/middleware"
	"github.com/catalysthq/catalyst/internal/platform/migration"
	pgstore "github.com/catalysthq/catalyst/internal/platform/postgres"
	redisstore "github.com/catalysthq/catalyst/internal/platform/redis"
	"github.com/catalysthq/catalyst/internal/platform/sec"
	"github.com/catalysthq/catalyst/internal/realtime"
	"github.com/catalysthq/catalyst/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "catalyst-api"))
	slog.SetDefault(log)

	log.Info("[Catalyst] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "catalyst-api"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(
		cfg.JWTSecret,
		cfg.JWTRefreshSecret,
		constants.AuthIssuer,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	must(log, err, "initialize token service")

	// ── 7. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	authService := auth.NewService(userRepository, sessionRepository, tokenService, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(authService, cfg.IsDevelopment())

	notificationRepository := notifications.NewRepository(pool)
	notificationHandler := notifications.NewHandler(notificationRepository)

	authenticator := middleware.NewAuthenticator(tokenService, authService)
	sensitiveLimiter := middleware.AuthRateLimit(rdb, cfg.AuthRateLimitWindow, cfg.AuthRateLimitMax)

	// ── 9. Realtime Gateway ───────────────────────────────────────────────
	presence := realtime.NewPresenceRegistry()
	hub := realtime.NewHub(presence, log)

	checkOrigin := func(request *http.Request) bool {
		origin := request.Header.Get("Origin")
		return origin == "" || cfg.IsDevelopment() || origin == cfg.AllowedOrigin()
	}
	gateway := realtime.NewGateway(hub, tokenService, authService, notificationRepository, checkOrigin, log)

	// ── 10. Session Sweeper ───────────────────────────────────────────────
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go auth.NewSessionSweeper(authService, log).Run(sweepCtx)

	// ── 11. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:      liveness,
		Readiness:     readiness,
		Auth:          authHandler,
		Notifications: notificationHandler,
		Realtime:      gateway,
	}

	middlewares := api.Middlewares{
		Authenticator:    authenticator,
		SensitiveLimiter: sensitiveLimiter,
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	server := api.NewServer(serverCtx, cfg, log, middlewares, handlers)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
