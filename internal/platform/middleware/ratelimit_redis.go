// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/catalysthq/catalyst/internal/platform/constants"
	"github.com/catalysthq/catalyst/internal/platform/ctxutil"
)

// AuthRateLimit is a stricter, Redis-backed fixed-window limiter mounted in
// front of the credential endpoints (login, register, password flows).
//
// # Why Redis?
//
// Credential endpoints are the brute-force target; their counters must
// survive process restarts and be shared across replicas, unlike the
// best-effort in-memory global limiter.
//
// # Failure Policy
//
// A Redis outage fails OPEN: authentication availability beats admission
// control, and the global in-memory limiter still applies.
func AuthRateLimit(client *redis.Client, window time.Duration, maxRequests int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			key := constants.RedisPrefixAuthRate + RealIP(request)

			// Fixed window: INCR the per-IP counter and stamp the TTL on
			// first use. Both run in one pipeline round-trip.
			pipe := client.TxPipeline()
			counter := pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)

			if _, err := pipe.Exec(ctx); err != nil {
				ctxutil.GetLogger(ctx).Warn("auth_rate_limit_unavailable", slog.Any("error", err))
				next.ServeHTTP(writer, request)
				return
			}

			if counter.Val() > int64(maxRequests) {
				retryAfter := int(window.Seconds())
				if ttl, err := client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retryAfter = int(ttl.Seconds())
				}

				writer.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				writeError(writer, http.StatusTooManyRequests, "RATE_LIMITED", "Too many authentication attempts. Try again later.")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
