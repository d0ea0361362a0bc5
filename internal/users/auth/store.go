// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package auth

import "context"

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// The core never depends on a concrete storage engine; main wires the
// PostgreSQL implementation in, tests wire fakes.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID, roles included.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity with role assignments
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email, roles included.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity with role assignments
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures (apperr.Conflict on duplicate email)
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		AssignRole grants the named role to the user. A no-op if the role
		does not exist or is already assigned.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - roleName: string

		Returns:
		  - error: Persistence failures
	*/
	AssignRole(context context.Context, userID, roleName string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
//
// All delete operations are idempotent: removing a session that does not
// exist is not an error.
type SessionRepository interface {

	/*
		Create persists a new session row for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		ConsumeByRefreshHash atomically deletes and returns the session
		matching the refresh token digest. This is the single-use rotation
		primitive: a second concurrent consume of the same token finds no
		row and fails, closing the replay window.

		Parameters:
		  - context: context.Context
		  - refreshTokenHash: string

		Returns:
		  - *Session: The consumed session
		  - error: apperr.NotFound when no row matched, or execution errors
	*/
	ConsumeByRefreshHash(context context.Context, refreshTokenHash string) (*Session, error)

	/*
		DeleteByAccessHash removes the caller's own session, identified by
		the access token digest. Used for logout.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - accessTokenHash: string

		Returns:
		  - error: Execution errors (absence is not one)
	*/
	DeleteByAccessHash(context context.Context, userID, accessTokenHash string) error

	/*
		DeleteAllForUser removes every session belonging to userID in a
		single conditional bulk delete. When exceptAccessHash is non-empty
		the session matching that digest survives; there is no window in
		which a concurrently issued session row could be wrongly spared or
		deleted, because the predicate runs as one statement.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - exceptAccessHash: string (empty = delete all)

		Returns:
		  - error: Execution errors
	*/
	DeleteAllForUser(context context.Context, userID, exceptAccessHash string) error

	/*
		DeleteByID removes one session owned by userID. Used for
		single-device revocation from the session list.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - sessionID: string

		Returns:
		  - error: Execution errors (absence is not one)
	*/
	DeleteByID(context context.Context, userID, sessionID string) error

	/*
		ListForUser returns the user's sessions, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Session: Device metadata for every live session
		  - error: Execution errors
	*/
	ListForUser(context context.Context, userID string) ([]*Session, error)

	/*
		DeleteExpired removes every session whose ExpiresAt has passed and
		reports how many rows were purged. Pure deletion by predicate,
		safe to run concurrently with all other operations.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Number of sessions removed
		  - error: Execution errors
	*/
	DeleteExpired(context context.Context) (int64, error)
}
