// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including roles, users, sites, memberships, subscriptions and posts.
package model

import (
	"database/sql"
	"time"
)

// MaxBlacklistedTokens is the number of logged-out token ids kept per user.
const MaxBlacklistedTokens = 10

// RegistrationRoles are the content roles a user may pick when signing up.
var RegistrationRoles = []string{RoleAuthor, RoleSubscriber}

// User represents a platform account.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Never expose in JSON

	// RoleName references a Role record; empty when the reference is missing.
	RoleName string `json:"role"`
	// LegacyRole mirrors RoleName for older authorization checks.
	LegacyRole   string `json:"legacy_role"`
	PlatformRole string `json:"platform_role"`
	IsActive     bool   `json:"is_active"`

	EmailVerified         bool         `json:"email_verified"`
	VerificationCode      string       `json:"-"`
	VerificationExpiresAt sql.NullTime `json:"-"`
	ResetTokenHash        string       `json:"-"`
	ResetExpiresAt        sql.NullTime `json:"-"`

	LastLoginAt sql.NullTime `json:"last_login_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsSuperAdmin returns true if the user holds the platform super_admin flag.
func (u *User) IsSuperAdmin() bool {
	return u.PlatformRole == PlatformRoleSuperAdmin
}

// VerificationValid reports whether code matches an unexpired verification code.
func (u *User) VerificationValid(code string, now time.Time) bool {
	if u.VerificationCode == "" || code == "" {
		return false
	}
	if !u.VerificationExpiresAt.Valid || !now.Before(u.VerificationExpiresAt.Time) {
		return false
	}
	return u.VerificationCode == code
}

// BlacklistedToken is a token id revoked at logout.
type BlacklistedToken struct {
	UserID        int64     `json:"user_id"`
	TokenID       string    `json:"token_id"`
	BlacklistedAt time.Time `json:"blacklisted_at"`
}
