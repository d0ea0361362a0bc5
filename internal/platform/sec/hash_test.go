// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalysthq/catalyst/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies hashing and verification of passwords.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckPasswordHash("wrong password", hash))
	assert.False(t, sec.CheckPasswordHash("", hash))
}

/*
TestHashToken_Deterministic verifies the session digest function.
*/
func TestHashToken_Deterministic(t *testing.T) {
	first := sec.HashToken("some.jwt.token")
	second := sec.HashToken("some.jwt.token")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex-encoded SHA-256
	assert.NotEqual(t, first, sec.HashToken("other.jwt.token"))
}

/*
TestIdentity_HasAnyRole checks role set intersection.
*/
func TestIdentity_HasAnyRole(t *testing.T) {
	identity := &sec.Identity{
		UserID: "user-123",
		Roles:  []string{"user", "admin"},
	}

	assert.True(t, identity.HasAnyRole("admin"))
	assert.True(t, identity.HasAnyRole("moderator", "user"))
	assert.False(t, identity.HasAnyRole("moderator"))
	assert.False(t, identity.HasAnyRole())

	empty := &sec.Identity{UserID: "user-456"}
	assert.False(t, empty.HasAnyRole("user"))
}
