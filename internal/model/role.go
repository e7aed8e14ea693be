// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Role names. The first seven form the platform ladder; site_admin and
// writer are site-scoped records kept in the same catalog.
const (
	RoleVisitor     = "visitor"
	RoleSubscriber  = "subscriber"
	RoleContributor = "contributor"
	RoleAuthor      = "author"
	RoleEditor      = "editor"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "super_admin"
	RoleSiteAdmin   = "site_admin"
	RoleWriter      = "writer"
)

// Role scopes
const (
	RoleScopePlatform = "platform"
	RoleScopeSite     = "site"
)

// Level bounds for Role.Level.
const (
	MinRoleLevel = 0
	MaxRoleLevel = 8
)

// Platform roles stored on User.PlatformRole, independent of the content role.
const (
	PlatformRoleUser       = "user"
	PlatformRoleSuperAdmin = "super_admin"
)

// knownRoles is the closed enumeration of role names.
var knownRoles = []string{
	RoleVisitor, RoleSubscriber, RoleContributor, RoleAuthor, RoleEditor,
	RoleAdmin, RoleSuperAdmin, RoleSiteAdmin, RoleWriter,
}

// IsKnownRole reports whether name is part of the role enumeration.
func IsKnownRole(name string) bool {
	return slices.Contains(knownRoles, name)
}

// Role is a named bundle of permissions with an ordered privilege level.
type Role struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description"`
	Scope       string       `json:"scope"`
	Level       int          `json:"level"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Has returns true if the role grants the permission.
func (r *Role) Has(p Permission) bool {
	return slices.Contains(r.Permissions, p)
}

// IsPlatform returns true for roles on the platform ladder.
func (r *Role) IsPlatform() bool {
	return r.Scope == RoleScopePlatform
}
