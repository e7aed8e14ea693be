// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import "github.com/olegiv/sitehub/internal/model"

// Assignment sources
const (
	SourceLegacy    = "legacy"
	SourceReference = "reference"
	SourceNone      = "none"
)

// RoleAssignment is the single effective platform role of a user.
type RoleAssignment struct {
	Name   string
	Source string
}

// Empty reports whether no effective role could be resolved.
func (a RoleAssignment) Empty() bool {
	return a.Name == ""
}

// platformRoles are the names accepted as an effective platform role.
var platformRoles = map[string]struct{}{
	model.RoleVisitor:     {},
	model.RoleSubscriber:  {},
	model.RoleContributor: {},
	model.RoleAuthor:      {},
	model.RoleEditor:      {},
	model.RoleAdmin:       {},
	model.RoleSuperAdmin:  {},
}

// ResolveAssignment is the only place that interprets the dual role
// representation of a user. The legacy string wins when it names a platform
// role, then the Role reference; site-scoped names never resolve.
func ResolveAssignment(legacy, reference string) RoleAssignment {
	if _, ok := platformRoles[legacy]; ok {
		return RoleAssignment{Name: legacy, Source: SourceLegacy}
	}
	if _, ok := platformRoles[reference]; ok {
		return RoleAssignment{Name: reference, Source: SourceReference}
	}
	return RoleAssignment{Source: SourceNone}
}

// Principal is the authenticated caller with the facts an authorization
// decision needs.
type Principal struct {
	UserID       int64
	Email        string
	Role         RoleAssignment
	PlatformRole string
}

// NewPrincipal builds a principal from a stored user.
func NewPrincipal(u *model.User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         ResolveAssignment(u.LegacyRole, u.RoleName),
		PlatformRole: u.PlatformRole,
	}
}

// IsSuperAdmin reports whether the platform override applies.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.PlatformRole == model.PlatformRoleSuperAdmin
}

// RoleName returns the effective role name, or "" when unresolved.
func (p *Principal) RoleName() string {
	if p == nil {
		return ""
	}
	return p.Role.Name
}
