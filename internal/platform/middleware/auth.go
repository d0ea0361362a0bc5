// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package middleware

import (
	"context"
	"net/http"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/internal/platform/ctxutil"
	"github.com/catalysthq/catalyst/internal/platform/respond"
	"github.com/catalysthq/catalyst/internal/platform/sec"

	requestutil "github.com/catalysthq/catalyst/internal/platform/request"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.TokenService], allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*sec.AuthClaims, error)
}

// IdentityLoader resolves verified token claims into a live identity.
//
// Implementations load the account and its role names FRESH from the user
// store, never from a cache, and fail for missing or deactivated accounts.
// This is what makes deactivation take effect on the next request even while
// the access token itself is still cryptographically valid.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID string) (*sec.Identity, error)
}

// Authenticator bundles the two collaborators every auth decision needs.
//
// It is constructed once in main with explicit dependencies, no package
// state, no hidden globals.
type Authenticator struct {
	verifier   TokenVerifier
	identities IdentityLoader
}

// NewAuthenticator constructs an [Authenticator].
func NewAuthenticator(verifier TokenVerifier, identities IdentityLoader) *Authenticator {
	return &Authenticator{verifier: verifier, identities: identities}
}

// Authenticate requires a valid 'Authorization: Bearer <token>' credential.
//
// # Flow
//  1. Extract the bearer token; absent → 401 "Access token required".
//  2. Verify the token cryptographically (expired and invalid are
//     distinguished for client messaging).
//  3. Load the identity + role names fresh from the store; a missing or
//     deactivated account → 401.
//  4. Inject the immutable [*sec.Identity] into the request context.
func (authenticator *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity, err := authenticator.resolve(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		ctx := ctxutil.WithIdentity(request.Context(), identity)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// OptionalAuth runs the same verification path as [Authenticate], but any
// failure (missing, invalid, expired token, inactive account) is swallowed
// and the request proceeds anonymously.
//
// # Usage
//
// For endpoints with public and personalized variants.
func (authenticator *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity, err := authenticator.resolve(request)
		if err != nil {
			next.ServeHTTP(writer, request)
			return
		}

		ctx := ctxutil.WithIdentity(request.Context(), identity)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RequireRole blocks requests whose identity holds none of the allowed role names.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticator.Authenticate].
//
// # Flow
//  1. Check if [*sec.Identity] exists in context; missing → 401.
//  2. Intersect the identity's role names with allowedRoles; empty → 403.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.HasAnyRole(allowedRoles...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// resolve performs extraction, verification, and identity loading.
func (authenticator *Authenticator) resolve(request *http.Request) (*sec.Identity, error) {
	token := requestutil.BearerToken(request)
	if token == "" {
		return nil, apperr.Unauthorized("Access token required")
	}

	claims, err := authenticator.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	identity, err := authenticator.identities.LoadIdentity(request.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}

	return identity, nil
}
