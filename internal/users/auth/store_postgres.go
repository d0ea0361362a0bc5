// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// PostgreSQL implementations of the auth repositories.
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, unique violations) are mapped to
// domain-friendly [apperr.AppError] values here, so nothing above the
// repository boundary leaks storage implementation details.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// userColumns keeps its leading and trailing newlines so that
// `SELECT` + userColumns + `FROM ...` assembles into valid SQL.
const userColumns = `
	id, email, passwordhash, firstname, lastname, department, jobtitle,
	phonenumber, avatar, isactive, emailverified, createdat, updatedat
`

// scanUser hydrates a User from a row carrying userColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Department,
		&user.JobTitle,
		&user.PhoneNumber,
		&user.Avatar,
		&user.IsActive,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account metadata, ensuring timestamps are initialized
if not provided. A duplicate email surfaces as apperr.Conflict.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict, constraint violations, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, firstname, lastname, department, jobtitle,
			phonenumber, avatar, isactive, emailverified, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Department,
		user.JobTitle,
		user.PhoneNumber,
		user.Avatar,
		user.IsActive,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == pgUniqueViolation {
			return apperr.Conflict("Email already registered")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Description: Performs a lookup on the account table and hydrates role
assignments in a second query.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity with roles
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `SELECT` + userColumns + `FROM users.account WHERE email = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	if err := repository.loadRoles(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Description: Primary key resolution for user accounts, roles included.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity with roles
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `SELECT` + userColumns + `FROM users.account WHERE id = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	if err := repository.loadRoles(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
AssignRole grants the named role to the user.

Description: Resolves the role by name and inserts the assignment. Missing
roles and duplicate assignments are silently ignored, matching the
registration flow's best-effort default-role grant.

Parameters:
  - context: context.Context
  - userID: string
  - roleName: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) AssignRole(context context.Context, userID, roleName string) error {
	const query = `
		INSERT INTO users.account_role (userid, roleid, assignedat)
		SELECT $1, r.id, $3 FROM users.role r WHERE r.name = $2
		ON CONFLICT (userid, roleid) DO NOTHING`

	_, err := repository.pool.Exec(context, query, userID, roleName, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_assign_role_failed: %w", err)
	}

	return nil
}

// loadRoles hydrates the user's role assignments.
func (repository *PostgresUserRepository) loadRoles(context context.Context, user *User) error {
	const query = `
		SELECT r.id, r.name, r.permissions, ar.assignedat
		FROM users.account_role ar
		JOIN users.role r ON r.id = ar.roleid
		WHERE ar.userid = $1
		ORDER BY ar.assignedat`

	rows, err := repository.pool.Query(context, query, user.ID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_load_roles_failed: %w", err)
	}
	defer rows.Close()

	user.Roles = []RoleAssignment{}
	for rows.Next() {
		var assignment RoleAssignment
		if err := rows.Scan(
			&assignment.Role.ID,
			&assignment.Role.Name,
			&assignment.Role.Permissions,
			&assignment.AssignedAt,
		); err != nil {
			return fmt.Errorf("postgres_user_repo_scan_role_failed: %w", err)
		}
		user.Roles = append(user.Roles, assignment)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres_user_repo_load_roles_failed: %w", err)
	}

	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Description: Records a successful authentication session in persistent storage.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (
			id, userid, accesstokenhash, refreshtokenhash, ipaddress, useragent, createdat, expiresat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.AccessTokenHash,
		session.RefreshTokenHash,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
ConsumeByRefreshHash atomically deletes and returns the matching session.

Description: Single DELETE ... RETURNING statement. Exactly one caller can
consume a given refresh token; every other concurrent consumer observes
apperr.NotFound. This is what makes refresh tokens single-use.

Parameters:
  - context: context.Context
  - refreshTokenHash: string

Returns:
  - *Session: The consumed session row
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) ConsumeByRefreshHash(context context.Context, refreshTokenHash string) (*Session, error) {
	const query = `
		DELETE FROM users.session
		WHERE refreshtokenhash = $1
		RETURNING id, userid, accesstokenhash, refreshtokenhash, ipaddress, useragent, createdat, expiresat`

	session := &Session{}
	err := repository.pool.QueryRow(context, query, refreshTokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.AccessTokenHash,
		&session.RefreshTokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_consume_failed: %w", err)
	}

	return session, nil
}

/*
DeleteByAccessHash removes the session matching the caller's access token digest.

Parameters:
  - context: context.Context
  - userID: string
  - accessTokenHash: string

Returns:
  - error: Execution errors; deleting zero rows is not one
*/
func (repository *PostgresSessionRepository) DeleteByAccessHash(context context.Context, userID, accessTokenHash string) error {
	const query = `DELETE FROM users.session WHERE userid = $1 AND accesstokenhash = $2`

	_, err := repository.pool.Exec(context, query, userID, accessTokenHash)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_by_access_failed: %w", err)
	}

	return nil
}

/*
DeleteAllForUser removes every session for a user, optionally sparing one.

Description: Single conditional bulk delete; the exception predicate is part
of the same statement, so no interleaved create/delete window exists.

Parameters:
  - context: context.Context
  - userID: string
  - exceptAccessHash: string (empty = no exception)

Returns:
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) DeleteAllForUser(context context.Context, userID, exceptAccessHash string) error {
	const query = `
		DELETE FROM users.session
		WHERE userid = $1 AND ($2 = '' OR accesstokenhash != $2)`

	_, err := repository.pool.Exec(context, query, userID, exceptAccessHash)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_all_failed: %w", err)
	}

	return nil
}

/*
DeleteByID removes a single session owned by userID.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: Execution errors; deleting zero rows is not one
*/
func (repository *PostgresSessionRepository) DeleteByID(context context.Context, userID, sessionID string) error {
	const query = `DELETE FROM users.session WHERE userid = $1 AND id = $2`

	_, err := repository.pool.Exec(context, query, userID, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_by_id_failed: %w", err)
	}

	return nil
}

/*
ListForUser returns the user's sessions, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Session: Hydrated session metadata
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) ListForUser(context context.Context, userID string) ([]*Session, error) {
	const query = `
		SELECT id, userid, accesstokenhash, refreshtokenhash, ipaddress, useragent, createdat, expiresat
		FROM users.session
		WHERE userid = $1
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.AccessTokenHash,
			&session.RefreshTokenHash,
			&session.IPAddress,
			&session.UserAgent,
			&session.CreatedAt,
			&session.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_session_repo_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}

	return sessions, nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions. Relies only
on the store's own per-statement atomicity, safe alongside all request traffic.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of rows purged
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	const query = `DELETE FROM users.session WHERE expiresat <= NOW()`

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
