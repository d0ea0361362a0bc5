// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Role, Session) and logic for
authentication, authorization, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import "time"

// # Domain Entities

// User represents a registered member of the Catalyst platform.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Department   string `json:"department,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Avatar       string `json:"avatar,omitempty"`

	// IsActive gates every authentication decision. It is read fresh from
	// the store on each request, so deactivation takes effect on the next
	// call regardless of outstanding token lifetimes.
	IsActive      bool `json:"isActive"`
	EmailVerified bool `json:"emailVerified"`

	Roles []RoleAssignment `json:"roles"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Role is a named authorization level with an attached permission list.
// Authorization decisions across the platform use role NAMES only; the
// permission list exists for future fine-grained checks.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// RoleAssignment binds a [Role] to a user with the grant timestamp.
type RoleAssignment struct {
	Role       Role      `json:"role"`
	AssignedAt time.Time `json:"assignedAt"`
}

// RoleNames flattens the user's assignments into the set of role names
// consumed by the authorization gateway.
func (user *User) RoleNames() []string {
	names := make([]string, 0, len(user.Roles))
	for _, assignment := range user.Roles {
		names = append(names, assignment.Role.Name)
	}
	return names
}

// Session is the sole durable artifact of a login: one row per issued
// refresh token, binding it to a user and device metadata.
//
// # Invariants
//
//   - ExpiresAt = CreatedAt + the fixed refresh TTL.
//   - Access tokens are never persisted; only their SHA-256 digest is kept
//     so logout and change-password can identify the caller's own session.
//   - Deleting the row is the unit of revocation.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"-"`
	AccessTokenHash  string    `json:"-"` // Digest only. Raw tokens never touch storage.
	RefreshTokenHash string    `json:"-"`
	IPAddress        string    `json:"ipAddress"`
	UserAgent        string    `json:"userAgent"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// # Well-Known Roles

const (
	// RoleUser is the default role granted at registration.
	RoleUser = "user"

	// RoleAdmin has unrestricted platform access.
	RoleAdmin = "admin"
)

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldToken           = "token"
	FieldRefreshToken    = "refreshToken"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldSessionID       = "sessionID"
)
