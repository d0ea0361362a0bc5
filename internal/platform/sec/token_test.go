// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/internal/platform/sec"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789"
	testRefreshSecret = "refresh-secret-for-tests-012345678"
	testIssuer        = "catalysthq.io"
)

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testAccessSecret, testRefreshSecret, testIssuer, accessTTL, refreshTTL)
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_SecretRules verifies the constructor rejects weak setups.
*/
func TestNewTokenService_SecretRules(t *testing.T) {
	tests := []struct {
		name          string
		accessSecret  string
		refreshSecret string
		wantErr       bool
	}{
		{"valid_distinct_secrets", "secret-a", "secret-b", false},
		{"empty_access_secret", "", "secret-b", true},
		{"empty_refresh_secret", "secret-a", "", true},
		{"identical_secrets", "same-secret", "same-secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sec.NewTokenService(tt.accessSecret, tt.refreshSecret, testIssuer, time.Minute, time.Hour)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

/*
TestTokenService_RoundTrip verifies that issued tokens verify with the
expected claims.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 168*time.Hour)

	pair, err := service.IssueTokenPair("user-123", "dev@catalysthq.io")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	accessClaims, err := service.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", accessClaims.UserID)
	assert.Equal(t, "dev@catalysthq.io", accessClaims.Email)
	assert.Equal(t, sec.TokenTypeAccess, accessClaims.TokenType)
	assert.Equal(t, testIssuer, accessClaims.Issuer)

	refreshClaims, err := service.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", refreshClaims.UserID)
	assert.Equal(t, sec.TokenTypeRefresh, refreshClaims.TokenType)
}

/*
TestTokenService_KindConfusion verifies that each verifier rejects tokens of
every other kind, even when they share a signing secret.
*/
func TestTokenService_KindConfusion(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 168*time.Hour)

	pair, err := service.IssueTokenPair("user-123", "dev@catalysthq.io")
	require.NoError(t, err)

	resetToken, err := service.IssuePasswordResetToken("user-123")
	require.NoError(t, err)

	tests := []struct {
		name   string
		verify func(string) (*sec.AuthClaims, error)
		token  string
	}{
		{"access_verifier_rejects_refresh", service.VerifyAccessToken, pair.RefreshToken},
		{"access_verifier_rejects_reset", service.VerifyAccessToken, resetToken},
		{"refresh_verifier_rejects_access", service.VerifyRefreshToken, pair.AccessToken},
		{"refresh_verifier_rejects_reset", service.VerifyRefreshToken, resetToken},
		{"reset_verifier_rejects_access", service.VerifyPasswordResetToken, pair.AccessToken},
		{"reset_verifier_rejects_refresh", service.VerifyPasswordResetToken, pair.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verify(tt.token)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "TOKEN_INVALID", ae.Code)
		})
	}
}

/*
TestTokenService_CrossServiceRejection verifies that tokens signed by a
service with different secrets do not verify.
*/
func TestTokenService_CrossServiceRejection(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 168*time.Hour)

	other, err := sec.NewTokenService("other-access-secret", "other-refresh-secret", testIssuer, 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)

	pair, err := other.IssueTokenPair("user-123", "dev@catalysthq.io")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)

	_, err = service.VerifyRefreshToken(pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)
}

/*
TestTokenService_Expiry verifies that expired tokens fail with the dedicated
TOKEN_EXPIRED code rather than the generic invalid one.
*/
func TestTokenService_Expiry(t *testing.T) {
	// Negative TTLs make freshly issued tokens already expired.
	service := newTestService(t, -1*time.Minute, -1*time.Minute)

	pair, err := service.IssueTokenPair("user-123", "dev@catalysthq.io")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(pair.AccessToken)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "TOKEN_EXPIRED", ae.Code)
	assert.True(t, apperr.IsAuthenticationError(err))

	_, err = service.VerifyRefreshToken(pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "TOKEN_EXPIRED", apperr.As(err).Code)
}

/*
TestTokenService_MalformedInput verifies handling of garbage token strings.
*/
func TestTokenService_MalformedInput(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 168*time.Hour)

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := service.VerifyAccessToken(token)
		require.Error(t, err)
		assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)
	}
}
