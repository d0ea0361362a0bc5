// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces defined at the point of use.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/catalysthq/catalyst/internal/platform/apperr"
	"github.com/catalysthq/catalyst/pkg/uuidv7"
)

// # Token Kinds

// TokenType discriminates the purpose a signed token was issued for.
//
// Every verification path enforces the discriminator, so a token of one
// kind can never be accepted where another kind is expected, even if the
// two kinds happen to share a signing secret (access and password-reset do).
type TokenType string

const (
	// TokenTypeAccess is the short-lived API credential.
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh is the long-lived session credential.
	TokenTypeRefresh TokenType = "refresh"

	// TokenTypeReset authorizes exactly one password reset.
	TokenTypeReset TokenType = "password-reset"
)

// ResetTokenTTL is the validity window of a password reset token.
// There is no revocation for reset tokens; they simply expire.
const ResetTokenTTL = 1 * time.Hour

// AuthClaims represents the payload embedded inside a Catalyst JWT.
//
// # Why custom claims?
//
// By embedding the UserID and Email directly inside the JWT, request
// handling can establish the caller's identity without a session lookup.
// Role names are deliberately NOT embedded: authorization data is loaded
// fresh per request so that role changes and deactivation take effect on
// the next call rather than at token expiry.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string    `json:"uid"`
	Email     string    `json:"eml"`
	TokenType TokenType `json:"typ"`
}

// TokenPair bundles a freshly issued access/refresh token couple.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// # Token Service

// TokenService issues and verifies HS256-signed JWTs.
//
// Access and refresh tokens are signed with independent secrets; password
// reset tokens reuse the access secret and rely on the [TokenType]
// discriminator. The service is stateless; verification never touches
// storage.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a new TokenService.
//
// # Parameters
//   - accessSecret: HMAC key for access and password-reset tokens.
//   - refreshSecret: HMAC key for refresh tokens. Must differ from accessSecret.
//   - issuer: The 'iss' claim stamped on every token.
//   - accessTTL, refreshTTL: Token lifetimes.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("sec: access and refresh secrets must be independent")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

/*
IssueTokenPair produces a signed access/refresh token couple for a user.

Description: Pure function of the inputs plus configured secrets and TTLs.
No state is created here; persisting the session row is the caller's job.

Parameters:
  - userID: string
  - email: string

Returns:
  - TokenPair: Signed access and refresh tokens
  - error: Signing failures
*/
func (service *TokenService) IssueTokenPair(userID, email string) (TokenPair, error) {
	accessToken, err := service.sign(userID, email, TokenTypeAccess, service.accessSecret, service.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sec_issue_access_token_failed: %w", err)
	}

	refreshToken, err := service.sign(userID, email, TokenTypeRefresh, service.refreshSecret, service.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sec_issue_refresh_token_failed: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

/*
IssuePasswordResetToken produces a single-purpose reset credential.

Description: Signed with the access secret but stamped TokenTypeReset, so it
is rejected by both VerifyAccessToken and VerifyRefreshToken. Fixed 1 hour TTL.

Parameters:
  - userID: string

Returns:
  - string: Signed reset token
  - error: Signing failures
*/
func (service *TokenService) IssuePasswordResetToken(userID string) (string, error) {
	token, err := service.sign(userID, "", TokenTypeReset, service.accessSecret, ResetTokenTTL)
	if err != nil {
		return "", fmt.Errorf("sec_issue_reset_token_failed: %w", err)
	}
	return token, nil
}

// VerifyAccessToken checks signature, expiry, and kind of an access token.
//
// # Returns
//   - *AuthClaims on success.
//   - apperr.TokenExpired when the token is past its 'exp' claim.
//   - apperr.TokenInvalid for bad signatures, malformed input, or kind mismatch.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, service.accessSecret, TokenTypeAccess)
}

// VerifyRefreshToken checks signature, expiry, and kind of a refresh token
// using the refresh secret. Failure modes mirror [VerifyAccessToken].
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, service.refreshSecret, TokenTypeRefresh)
}

// VerifyPasswordResetToken checks signature, expiry, and kind of a reset token.
func (service *TokenService) VerifyPasswordResetToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, service.accessSecret, TokenTypeReset)
}

// sign builds and signs a JWT with the given kind, secret, and lifetime.
func (service *TokenService) sign(userID, email string, kind TokenType, secret []byte, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique jti: JWT timestamps have second precision, so without it
			// two tokens issued in the same second would be byte-identical
			// and their session digests would collide.
			ID:        uuidv7.New(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:    userID,
		Email:     email,
		TokenType: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verify parses a JWT against the given secret and enforces the kind discriminator.
func (service *TokenService) verify(tokenString string, secret []byte, expected TokenType) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired("Token expired")
		}
		return nil, apperr.TokenInvalid("Invalid token")
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, apperr.TokenInvalid("Invalid token claims")
	}

	// Kind confusion check. A password-reset token must never be replayed
	// as an access or refresh credential.
	if claims.TokenType != expected {
		return nil, apperr.TokenInvalid("Invalid token")
	}

	return claims, nil
}
