// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/internal/platform/sec"
	"github.com/catalysthq/catalyst/internal/users/auth"
)

// # In-Memory Repositories

type memoryUserRepo struct {
	users map[string]*auth.User // keyed by ID
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*auth.User)}
}

func (repo *memoryUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (repo *memoryUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range repo.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepo) Create(_ context.Context, user *auth.User) error {
	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.Conflict("Email already registered")
		}
	}
	copied := *user
	repo.users[user.ID] = &copied
	return nil
}

func (repo *memoryUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	if user, ok := repo.users[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (repo *memoryUserRepo) AssignRole(_ context.Context, userID, roleName string) error {
	if user, ok := repo.users[userID]; ok {
		user.Roles = append(user.Roles, auth.RoleAssignment{
			Role:       auth.Role{ID: "role-" + roleName, Name: roleName},
			AssignedAt: time.Now(),
		})
	}
	return nil
}

type memorySessionRepo struct {
	sessions map[string]*auth.Session // keyed by ID
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*auth.Session)}
}

func (repo *memorySessionRepo) Create(_ context.Context, session *auth.Session) error {
	copied := *session
	repo.sessions[session.ID] = &copied
	return nil
}

func (repo *memorySessionRepo) ConsumeByRefreshHash(_ context.Context, refreshTokenHash string) (*auth.Session, error) {
	for id, session := range repo.sessions {
		if session.RefreshTokenHash == refreshTokenHash {
			delete(repo.sessions, id)
			return session, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (repo *memorySessionRepo) DeleteByAccessHash(_ context.Context, userID, accessTokenHash string) error {
	for id, session := range repo.sessions {
		if session.UserID == userID && session.AccessTokenHash == accessTokenHash {
			delete(repo.sessions, id)
		}
	}
	return nil
}

func (repo *memorySessionRepo) DeleteAllForUser(_ context.Context, userID, exceptAccessHash string) error {
	for id, session := range repo.sessions {
		if session.UserID == userID && (exceptAccessHash == "" || session.AccessTokenHash != exceptAccessHash) {
			delete(repo.sessions, id)
		}
	}
	return nil
}

func (repo *memorySessionRepo) DeleteByID(_ context.Context, userID, sessionID string) error {
	if session, ok := repo.sessions[sessionID]; ok && session.UserID == userID {
		delete(repo.sessions, sessionID)
	}
	return nil
}

func (repo *memorySessionRepo) ListForUser(_ context.Context, userID string) ([]*auth.Session, error) {
	result := []*auth.Session{}
	for _, session := range repo.sessions {
		if session.UserID == userID {
			copied := *session
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (repo *memorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var purged int64
	now := time.Now()
	for id, session := range repo.sessions {
		if now.After(session.ExpiresAt) {
			delete(repo.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// # Fixture

type fixture struct {
	service  *auth.Service
	users    *memoryUserRepo
	sessions *memorySessionRepo
	tokens   *sec.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := sec.NewTokenService(
		"access-secret-for-service-tests",
		"refresh-secret-for-service-tests",
		"catalysthq.io",
		15*time.Minute,
		168*time.Hour,
	)
	require.NoError(t, err)

	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()

	return &fixture{
		service:  auth.NewService(users, sessions, tokens, 168*time.Hour),
		users:    users,
		sessions: sessions,
		tokens:   tokens,
	}
}

func (f *fixture) register(t *testing.T, email, password string) *auth.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) login(t *testing.T, email, password string) *auth.LoginSession {
	t.Helper()
	session, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:     email,
		Password:  password,
		UserAgent: "go-test",
		IPAddress: "127.0.0.1",
	})
	require.NoError(t, err)
	return session
}

// # Tests

/*
TestService_Register covers account creation rules.
*/
func TestService_Register(t *testing.T) {
	t.Run("creates_active_user_with_default_role", func(t *testing.T) {
		f := newFixture(t)

		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")

		assert.NotEmpty(t, user.ID)
		assert.True(t, user.IsActive)
		assert.False(t, user.EmailVerified)
		assert.Equal(t, []string{auth.RoleUser}, user.RoleNames())
		// Plain-text password must never be stored.
		assert.NotEqual(t, "engine-no-9!", user.PasswordHash)
		assert.True(t, sec.CheckPasswordHash("engine-no-9!", user.PasswordHash))
	})

	t.Run("duplicate_email_conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")

		_, err := f.service.Register(context.Background(), auth.RegisterInput{
			Email:     "ada@catalysthq.io",
			Password:  "different-pw",
			FirstName: "Ada",
			LastName:  "Lovelace",
		})

		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})
}

/*
TestService_Login covers credential verification and session creation.
*/
func TestService_Login(t *testing.T) {
	t.Run("issues_tokens_and_persists_session", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")

		session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		require.NotEmpty(t, session.AccessToken)
		require.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, "ada@catalysthq.io", session.User.Email)

		// The session row stores digests, never the tokens themselves.
		stored, err := f.sessions.ListForUser(context.Background(), session.User.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, sec.HashToken(session.AccessToken), stored[0].AccessTokenHash)
		assert.Equal(t, sec.HashToken(session.RefreshToken), stored[0].RefreshTokenHash)
	})

	t.Run("wrong_password_rejected", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")

		_, err := f.service.Login(context.Background(), auth.LoginInput{
			Email:    "ada@catalysthq.io",
			Password: "guess",
		})

		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("unknown_email_same_error_as_wrong_password", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")

		_, unknownErr := f.service.Login(context.Background(), auth.LoginInput{
			Email: "nobody@catalysthq.io", Password: "engine-no-9!",
		})
		_, wrongErr := f.service.Login(context.Background(), auth.LoginInput{
			Email: "ada@catalysthq.io", Password: "guess",
		})

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.Equal(t, wrongErr.Error(), unknownErr.Error())
	})

	t.Run("deactivated_account_rejected", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		f.users.users[user.ID].IsActive = false

		_, err := f.service.Login(context.Background(), auth.LoginInput{
			Email: "ada@catalysthq.io", Password: "engine-no-9!",
		})

		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

/*
TestService_RefreshSession covers token rotation and its hardening rules.
*/
func TestService_RefreshSession(t *testing.T) {
	t.Run("rotation_issues_new_pair", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")
		original := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		rotated, err := f.service.RefreshSession(context.Background(), original.RefreshToken, "go-test", "127.0.0.1")
		require.NoError(t, err)

		assert.NotEqual(t, original.AccessToken, rotated.AccessToken)
		assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)

		_, err = f.tokens.VerifyRefreshToken(rotated.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("refresh_token_is_single_use", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")
		original := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		_, err := f.service.RefreshSession(context.Background(), original.RefreshToken, "go-test", "127.0.0.1")
		require.NoError(t, err)

		// Replaying the consumed token must fail even though the JWT itself
		// is still cryptographically valid.
		_, err = f.service.RefreshSession(context.Background(), original.RefreshToken, "go-test", "127.0.0.1")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("expired_session_row_rejected", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")
		session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		// Age the stored row past its expiry without touching the JWT.
		for _, stored := range f.sessions.sessions {
			stored.ExpiresAt = time.Now().Add(-time.Minute)
		}

		_, err := f.service.RefreshSession(context.Background(), session.RefreshToken, "go-test", "127.0.0.1")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("deactivated_user_rejected", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		f.users.users[user.ID].IsActive = false

		_, err := f.service.RefreshSession(context.Background(), session.RefreshToken, "go-test", "127.0.0.1")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("garbage_token_rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.RefreshSession(context.Background(), "not-a-jwt", "go-test", "127.0.0.1")
		require.Error(t, err)
		assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)
	})
}

/*
TestService_Logout verifies session revocation by access token digest.
*/
func TestService_Logout(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
	session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

	require.NoError(t, f.service.Logout(context.Background(), user.ID, session.AccessToken))

	stored, err := f.sessions.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// Logging out twice is fine.
	assert.NoError(t, f.service.Logout(context.Background(), user.ID, session.AccessToken))
}

/*
TestService_ChangePassword verifies credential rotation and selective
session revocation.
*/
func TestService_ChangePassword(t *testing.T) {
	t.Run("wrong_current_password_rejected", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		err := f.service.ChangePassword(context.Background(), user.ID, session.AccessToken, auth.ChangePasswordInput{
			CurrentPassword: "guess",
			NewPassword:     "analytical-engine",
		})

		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("revokes_other_sessions_keeps_callers", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")

		laptop := f.login(t, "ada@catalysthq.io", "engine-no-9!")
		phone := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		err := f.service.ChangePassword(context.Background(), user.ID, laptop.AccessToken, auth.ChangePasswordInput{
			CurrentPassword: "engine-no-9!",
			NewPassword:     "analytical-engine",
		})
		require.NoError(t, err)

		stored, err := f.sessions.ListForUser(context.Background(), user.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, sec.HashToken(laptop.AccessToken), stored[0].AccessTokenHash)
		assert.NotEqual(t, sec.HashToken(phone.AccessToken), stored[0].AccessTokenHash)

		// Old password no longer works; new one does.
		_, err = f.service.Login(context.Background(), auth.LoginInput{
			Email: "ada@catalysthq.io", Password: "engine-no-9!",
		})
		require.Error(t, err)
		f.login(t, "ada@catalysthq.io", "analytical-engine")
	})
}

/*
TestService_PasswordRecovery covers the forgot/reset flow end to end.
*/
func TestService_PasswordRecovery(t *testing.T) {
	t.Run("unknown_email_yields_no_token_and_no_error", func(t *testing.T) {
		f := newFixture(t)

		token, err := f.service.ForgotPassword(context.Background(), "nobody@catalysthq.io")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("deactivated_account_yields_no_token", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		f.users.users[user.ID].IsActive = false

		token, err := f.service.ForgotPassword(context.Background(), "ada@catalysthq.io")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("reset_updates_password_and_revokes_all_sessions", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		f.login(t, "ada@catalysthq.io", "engine-no-9!")
		f.login(t, "ada@catalysthq.io", "engine-no-9!")

		resetToken, err := f.service.ForgotPassword(context.Background(), "ada@catalysthq.io")
		require.NoError(t, err)
		require.NotEmpty(t, resetToken)

		err = f.service.ResetPassword(context.Background(), resetToken, "analytical-engine")
		require.NoError(t, err)

		stored, err := f.sessions.ListForUser(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Empty(t, stored)

		f.login(t, "ada@catalysthq.io", "analytical-engine")
	})

	t.Run("access_token_rejected_as_reset_token", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ada@catalysthq.io", "engine-no-9!")
		session := f.login(t, "ada@catalysthq.io", "engine-no-9!")

		err := f.service.ResetPassword(context.Background(), session.AccessToken, "analytical-engine")
		require.Error(t, err)
		assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)
	})
}

/*
TestService_SessionManagement covers listing and revoking individual sessions.
*/
func TestService_SessionManagement(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
	f.login(t, "ada@catalysthq.io", "engine-no-9!")
	f.login(t, "ada@catalysthq.io", "engine-no-9!")

	sessions, err := f.service.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, f.service.RevokeSession(context.Background(), user.ID, sessions[0].ID))

	remaining, err := f.service.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

/*
TestService_LoadIdentity verifies the per-request identity resolution rules.
*/
func TestService_LoadIdentity(t *testing.T) {
	t.Run("active_user_resolves_with_roles", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")

		identity, err := f.service.LoadIdentity(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, "ada@catalysthq.io", identity.Email)
		assert.Equal(t, []string{auth.RoleUser}, identity.Roles)
	})

	t.Run("deactivated_user_rejected", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
		f.users.users[user.ID].IsActive = false

		_, err := f.service.LoadIdentity(context.Background(), user.ID)
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("missing_user_rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.LoadIdentity(context.Background(), "no-such-user")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

/*
TestService_SweepExpiredSessions verifies the cleanup path removes only
expired rows.
*/
func TestService_SweepExpiredSessions(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@catalysthq.io", "engine-no-9!")
	f.login(t, "ada@catalysthq.io", "engine-no-9!")
	f.login(t, "ada@catalysthq.io", "engine-no-9!")

	// Age one of the two sessions.
	var aged bool
	for _, session := range f.sessions.sessions {
		if !aged {
			session.ExpiresAt = time.Now().Add(-time.Hour)
			aged = true
		}
	}

	purged, err := f.service.SweepExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := f.sessions.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
