// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package sec

// Identity is the immutable per-request (or per-connection) authenticated
// principal.
//
// # Construction
//
// An Identity is created exactly once, by the HTTP authentication
// middleware or by the realtime handshake, after the access token has been
// verified AND the account has been confirmed active against the user store.
// It is then threaded through context (HTTP) or bound to the connection
// (realtime) and never mutated.
type Identity struct {
	// UserID is the account's primary key.
	UserID string `json:"user_id"`

	// Email as carried in the verified token claims.
	Email string `json:"email"`

	// Roles holds the account's role NAMES, loaded fresh from the store at
	// authentication time. Authorization decisions use names only.
	Roles []string `json:"roles"`
}

// HasAnyRole reports whether the identity holds at least one of the allowed
// role names. An empty allowed list permits nobody.
func (identity *Identity) HasAnyRole(allowed ...string) bool {
	for _, want := range allowed {
		for _, have := range identity.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
