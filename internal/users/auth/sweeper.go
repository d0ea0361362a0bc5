// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/catalysthq/catalyst/internal/platform/constants"
)

// SessionSweeper deletes expired sessions on a fixed interval.
//
// Expired refresh tokens are already rejected at use (the service checks
// expiry after consuming the row), so the sweeper is purely hygiene: it keeps
// users.session from accumulating rows for devices that never came back.
type SessionSweeper struct {
	authService *Service
	logger      *slog.Logger
	interval    time.Duration
}

// NewSessionSweeper constructs a sweeper with the default interval.
func NewSessionSweeper(service *Service, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		authService: service,
		logger:      logger,
		interval:    constants.SessionSweepInterval,
	}
}

// Run blocks, sweeping once per interval until the context is cancelled.
// Intended to be launched as a goroutine from main.
func (sweeper *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweeper.sweep(ctx)
		}
	}
}

func (sweeper *SessionSweeper) sweep(ctx context.Context) {
	purged, err := sweeper.authService.SweepExpiredSessions(ctx)
	if err != nil {
		sweeper.logger.Error("session sweep failed", slog.Any("error", err))
		return
	}

	if purged > 0 {
		sweeper.logger.Info("expired sessions purged", slog.Int64("count", purged))
	}
}
