// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost trades CPU for resistance to offline cracking.
const passwordHashCost = 12

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
// bcrypt's comparison is constant-time.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// # Why hash tokens at rest?
//
// Session rows never store raw token material. Lookups compare fixed-length
// digests, which both protects the tokens if the database leaks and removes
// variable-length string comparison from the hot path (no timing leak).
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
