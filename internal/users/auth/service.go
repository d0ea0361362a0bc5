// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// Package auth implements authentication and session management for the
// Catalyst platform.
//
// # Architecture
//
// The service orchestrates domain entities and talks to storage through
// repository interfaces. It is technology-agnostic and does not know about
// HTTP or SQL.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/internal/platform/sec"
	"github.com/catalysthq/catalyst/pkg/uuidv7"
)

// TokenProvider defines the contract for issuing and verifying security tokens.
type TokenProvider interface {
	// IssueTokenPair creates a signed access/refresh token couple for the user.
	IssueTokenPair(userID, email string) (sec.TokenPair, error)

	// VerifyRefreshToken validates a refresh token's signature, expiry and type.
	VerifyRefreshToken(tokenString string) (*sec.AuthClaims, error)

	// IssuePasswordResetToken creates a short-lived single-purpose reset token.
	IssuePasswordResetToken(userID string) (string, error)

	// VerifyPasswordResetToken validates a reset token's signature, expiry and type.
	VerifyPasswordResetToken(tokenString string) (*sec.AuthClaims, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or session revocation logic must be reviewed by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	tokenProvider     TokenProvider
	refreshTokenTTL   time.Duration
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	tokenProv TokenProvider,
	refreshTokenTTL time.Duration,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		tokenProvider:     tokenProv,
		refreshTokenTTL:   refreshTokenTTL,
	}
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Department  string
	JobTitle    string
	PhoneNumber string
}

// Register validates, hashes, and persists a brand new user account.
//
// # Parameters
//   - context: Context for the database operation.
//   - input: The user-provided registration details.
//
// # Returns
//   - A pointer to the newly created [*User].
//   - Returns [apperr.Conflict] if the email already exists.
//
// # Business Rules
//   - Emails must be unique.
//   - New accounts are active immediately but start unverified.
//   - Default role is always 'user'.
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	// ── 1. Uniqueness Check ───────────────────────────────────────────────

	// Verify email uniqueness up front for a client-safe Conflict error. The
	// unique index on users.account is the real guard against races.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email already registered")
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	user := &User{
		ID:            uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		Email:         input.Email,
		PasswordHash:  hashedPassword,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Department:    input.Department,
		JobTitle:      input.JobTitle,
		PhoneNumber:   input.PhoneNumber,
		IsActive:      true,
		EmailVerified: false,
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// Rule: Default role is always 'user'.
	if err := service.userRepository.AssignRole(context, user.ID, RoleUser); err != nil {
		return nil, fmt.Errorf("auth_service_assign_role_failed: %w", err)
	}

	// Re-read so the returned entity carries the role assignment.
	return service.userRepository.FindByID(context, user.ID)
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Login validates user credentials and issues a signed token pair.
//
// # Parameters
//   - context: Context for the database operation.
//   - input: Contains Email and plain-text Password.
//
// # Returns
//   - A pointer to [LoginSession] with both tokens and the user profile.
//   - Returns [apperr.Unauthorized] if credentials do not match or the
//     account has been deactivated.
//
// # Flow
//  1. Lookup user by email.
//  2. Reject deactivated accounts.
//  3. Verify password hash using Bcrypt.
//  4. Issue token pair and persist the session.
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	// ── 1. Fetch User Profile ─────────────────────────────────────────────

	// Return a generic unauthorized error to prevent email enumeration attacks.
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !user.IsActive {
		return nil, apperr.Unauthorized("Account is deactivated")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Bcrypt comparison is constant-time, so timing reveals nothing.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// ── 3. Token Issuance ─────────────────────────────────────────────────

	pair, err := service.tokenProvider.IssueTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_issuance_failed: %w", err)
	}

	// ── 4. Session Persistence ────────────────────────────────────────────

	if err := service.createSession(context, user.ID, pair, input.UserAgent, input.IPAddress); err != nil {
		return nil, err
	}

	return &LoginSession{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// createSession stores the digest record backing a freshly issued token pair.
// Only SHA-256 digests touch the database, never the tokens themselves.
func (service *Service) createSession(context context.Context, userID string, pair sec.TokenPair, userAgent, ipAddress string) error {
	session := &Session{
		ID:               uuidv7.New(),
		UserID:           userID,
		AccessTokenHash:  sec.HashToken(pair.AccessToken),
		RefreshTokenHash: sec.HashToken(pair.RefreshToken),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		ExpiresAt:        time.Now().Add(service.refreshTokenTTL),
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return nil
}

// RefreshSession implements the refresh token rotation mechanism.
//
// The presented refresh token must pass two independent gates: a valid JWT
// signature, and a live session row holding its digest. The consume step
// deletes that row atomically, so a replayed token fails no matter how the
// race interleaves. A fresh pair, including a new refresh token, is issued
// on success.
//
// # Returns
//   - A pointer to [LoginSession] with the rotated token pair.
//   - Returns [apperr.TokenExpired] or [apperr.TokenInvalid] for bad JWTs.
//   - Returns [apperr.Unauthorized] for revoked sessions or inactive users.
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {
	// ── 1. Verify Token Signature ─────────────────────────────────────────

	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	// ── 2. Consume Session (Rotation) ─────────────────────────────────────

	// The row is gone after this statement. A second presentation of the same
	// token lands here and is rejected.
	session, err := service.sessionRepository.ConsumeByRefreshHash(context, sec.HashToken(refreshToken))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	// Lazy expiry: the hourly sweeper may not have reached this row yet.
	if time.Now().After(session.ExpiresAt) {
		return nil, apperr.Unauthorized("Refresh token expired")
	}

	// ── 3. Fetch User Profile ─────────────────────────────────────────────

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, apperr.Unauthorized("User not found or inactive")
	}

	// ── 4. Issue Replacement Pair ─────────────────────────────────────────

	pair, err := service.tokenProvider.IssueTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_issuance_failed: %w", err)
	}

	if err := service.createSession(context, user.ID, pair, userAgent, ipAddress); err != nil {
		return nil, err
	}

	return &LoginSession{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// Logout revokes the session the caller's access token belongs to.
// Absent sessions are treated as already logged out (idempotent operation).
func (service *Service) Logout(context context.Context, userID, accessToken string) error {
	err := service.sessionRepository.DeleteByAccessHash(context, userID, sec.HashToken(accessToken))
	if err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// CurrentUser returns the full profile for the authenticated user.
func (service *Service) CurrentUser(context context.Context, userID string) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePasswordInput carries the credentials for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword rotates the user's password after verifying the current one.
//
// Every other session is revoked in the same operation. The caller's own
// session survives, identified by the digest of the access token they are
// presenting right now, so the device performing the change stays signed in.
//
// # Returns
//   - Returns [apperr.Unauthorized] if the current password does not match.
func (service *Service) ChangePassword(context context.Context, userID, accessToken string, input ChangePasswordInput) error {
	// ── 1. Verify Current Password ────────────────────────────────────────

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(input.CurrentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	// ── 2. Rotate Credential ──────────────────────────────────────────────

	newHash, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	// ── 3. Revoke Other Sessions ──────────────────────────────────────────

	// Single conditional delete, sparing only the caller's session.
	if err := service.sessionRepository.DeleteAllForUser(context, userID, sec.HashToken(accessToken)); err != nil {
		return fmt.Errorf("auth_service_revoke_sessions_failed: %w", err)
	}

	return nil
}

// ForgotPassword starts the password recovery flow for the given email.
//
// To prevent account enumeration the outcome is identical whether or not the
// account exists: no error, and the HTTP layer returns the same message
// either way. The reset token is only produced for real, active accounts.
//
// # Returns
//   - The signed reset token, or "" when no token was issued.
func (service *Service) ForgotPassword(context context.Context, email string) (string, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil || !user.IsActive {
		// Unknown or deactivated account. Same outward behavior as success.
		return "", nil
	}

	resetToken, err := service.tokenProvider.IssuePasswordResetToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	// TODO: deliver the token by email once the notification mailer lands;
	// until then the development server echoes it in the response body.
	return resetToken, nil
}

// ResetPassword completes the recovery flow using a reset token.
//
// All sessions for the account are revoked: a reset usually means the old
// credential is suspected compromised.
//
// # Returns
//   - Returns [apperr.TokenExpired] or [apperr.TokenInvalid] for bad tokens.
func (service *Service) ResetPassword(context context.Context, resetToken, newPassword string) error {
	// ── 1. Verify Reset Token ─────────────────────────────────────────────

	claims, err := service.tokenProvider.VerifyPasswordResetToken(resetToken)
	if err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil || !user.IsActive {
		return apperr.Unauthorized("User not found or inactive")
	}

	// ── 2. Rotate Credential ──────────────────────────────────────────────

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, newHash); err != nil {
		return fmt.Errorf("auth_service_reset_password_failed: %w", err)
	}

	// ── 3. Revoke All Sessions ────────────────────────────────────────────

	if err := service.sessionRepository.DeleteAllForUser(context, user.ID, ""); err != nil {
		return fmt.Errorf("auth_service_revoke_sessions_failed: %w", err)
	}

	return nil
}

// ListSessions returns the caller's active sessions, newest first.
func (service *Service) ListSessions(context context.Context, userID string) ([]*Session, error) {
	sessions, err := service.sessionRepository.ListForUser(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_sessions_failed: %w", err)
	}

	return sessions, nil
}

// RevokeSession removes one of the caller's sessions by ID.
// Revoking a session that is already gone succeeds silently.
func (service *Service) RevokeSession(context context.Context, userID, sessionID string) error {
	if err := service.sessionRepository.DeleteByID(context, userID, sessionID); err != nil {
		return fmt.Errorf("auth_service_revoke_session_failed: %w", err)
	}

	return nil
}

// LoadIdentity resolves a verified token subject into a request identity.
//
// The account is re-read on every call, so role changes and deactivations
// take effect on the very next request rather than at token expiry.
//
// # Returns
//   - Returns [apperr.Unauthorized] for missing or deactivated accounts.
func (service *Service) LoadIdentity(context context.Context, userID string) (*sec.Identity, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil || !user.IsActive {
		return nil, apperr.Unauthorized("User not found or inactive")
	}

	return &sec.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.RoleNames(),
	}, nil
}

// SweepExpiredSessions purges sessions whose expiry has passed.
// Intended to run on a fixed interval from a background worker.
func (service *Service) SweepExpiredSessions(context context.Context) (int64, error) {
	purged, err := service.sessionRepository.DeleteExpired(context)
	if err != nil {
		return 0, fmt.Errorf("auth_service_sweep_failed: %w", err)
	}

	return purged, nil
}
