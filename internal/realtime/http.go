// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/internal/platform/middleware"
	"github.com/catalysthq/catalyst/internal/platform/respond"
	"github.com/catalysthq/catalyst/pkg/uuidv7"
)

// Gateway upgrades authenticated HTTP requests into hub-managed connections.
//
// # Handshake
//
// Authentication happens BEFORE the upgrade. The token travels as a query
// parameter because browser WebSocket clients cannot set an Authorization
// header on the handshake request. An invalid token gets a plain HTTP 401
// and no WebSocket is ever established.
type Gateway struct {
	hub           *Hub
	verifier      middleware.TokenVerifier
	identities    middleware.IdentityLoader
	notifications NotificationMarker
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

// NewGateway constructs the WebSocket entry point.
// checkOrigin decides which handshake origins are acceptable.
func NewGateway(
	hub *Hub,
	verifier middleware.TokenVerifier,
	identities middleware.IdentityLoader,
	notifications NotificationMarker,
	checkOrigin func(*http.Request) bool,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		hub:           hub,
		verifier:      verifier,
		identities:    identities,
		notifications: notifications,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

/*
ServeHTTP authenticates and upgrades a WebSocket connection.

GET /ws?token=<access token>

Description: Verifies the access token and re-reads the account before
upgrading. Deactivated accounts are refused even with a valid token. On
success the connection auto-joins its private user room and starts both
pumps.

Response:
  - 101: Switching Protocols
  - 401: ErrUnauthorized: Missing, invalid, or expired token
*/
func (gateway *Gateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Authenticate (before upgrade) ──────────────────────────────────

	token := request.URL.Query().Get("token")
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Access token required"))
		return
	}

	claims, err := gateway.verifier.VerifyAccessToken(token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := gateway.identities.LoadIdentity(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Upgrade ────────────────────────────────────────────────────────

	conn, err := gateway.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		gateway.logger.Warn("websocket upgrade failed",
			slog.String("user_id", identity.UserID),
			slog.Any("error", err),
		)
		return
	}

	// ── 3. Register & Serve ───────────────────────────────────────────────

	client := &Client{
		hub:           gateway.hub,
		conn:          conn,
		identity:      identity,
		connectionID:  uuidv7.New(),
		send:          make(chan []byte, sendQueueSize),
		rooms:         make(map[string]struct{}),
		notifications: gateway.notifications,
		logger:        gateway.logger,
	}

	gateway.hub.register(client)

	go client.writePump()
	go client.readPump()
}
