// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/catalysthq/catalyst/internal/notifications"
	"github.com/catalysthq/catalyst/internal/platform/config"
	"github.com/catalysthq/catalyst/internal/platform/constants"
	"github.com/catalysthq/catalyst/internal/platform/middleware"
	"github.com/catalysthq/catalyst/internal/realtime"
	"github.com/catalysthq/catalyst/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here; no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler, always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler, returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the authentication lifecycle (register, login, refresh, recovery).
	Auth *auth.Handler

	// Notifications handles notification listing and read state.
	Notifications *notifications.Handler

	// Realtime upgrades authenticated WebSocket connections.
	Realtime *realtime.Gateway
}

// Middlewares groups the stateful middleware the server composes per route
// group.
type Middlewares struct {
	// Authenticator guards protected route groups.
	Authenticator *middleware.Authenticator

	// SensitiveLimiter throttles credential-bearing auth endpoints per IP.
	SensitiveLimiter func(http.Handler) http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, mw Middlewares, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # WebSocket Gateway
	// Mounted outside the request timeout group: the connection is long-lived.
	r.Get("/ws", h.Realtime.ServeHTTP)

	// # Application API
	// Domain route groups, each request bounded by the global timeout.
	r.Group(func(g chi.Router) {
		g.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		g.Route("/api", func(api chi.Router) {
			api.Mount("/auth", h.Auth.Routes(mw.Authenticator, mw.SensitiveLimiter))

			api.Group(func(protected chi.Router) {
				protected.Use(mw.Authenticator.Authenticate)
				protected.Mount("/notifications", h.Notifications.Routes())

				// Feature areas owned by other teams; stubbed until their
				// services mount here.
				protected.Mount("/users", placeholderRoutes("users"))
				protected.Mount("/innovations", placeholderRoutes("innovations"))
				protected.Mount("/rapid", placeholderRoutes("rapid"))

				// Analytics is admin-only even as a stub, so the role gate is
				// in place before the real service lands.
				protected.Group(func(admin chi.Router) {
					admin.Use(middleware.RequireRole(auth.RoleAdmin))
					admin.Mount("/analytics", placeholderRoutes("analytics"))
				})
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
