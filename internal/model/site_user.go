// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"slices"
	"time"
)

// Site-scoped membership roles. These are a separate ladder from the
// platform roles even where names overlap.
const (
	SiteRoleAdmin      = "site_admin"
	SiteRoleEditor     = "editor"
	SiteRoleWriter     = "writer"
	SiteRoleSubscriber = "subscriber"
)

// SiteRoles lists membership roles from most to least privileged.
var SiteRoles = []string{SiteRoleAdmin, SiteRoleEditor, SiteRoleWriter, SiteRoleSubscriber}

// IsValidSiteRole reports whether role is a known membership role.
func IsValidSiteRole(role string) bool {
	return slices.Contains(SiteRoles, role)
}

// Membership statuses
const (
	MembershipActive   = "active"
	MembershipInactive = "inactive"
	MembershipPending  = "pending"
)

// DefaultSitePermissions returns the permission list granted to a new
// member with the given site role.
func DefaultSitePermissions(role string) []SitePermission {
	switch role {
	case SiteRoleAdmin:
		return slices.Clone(AllSitePermissions)
	case SiteRoleEditor:
		return []SitePermission{
			SitePermManageContent, SitePermPublishPosts, SitePermCreatePosts,
			SitePermEditPosts, SitePermDeletePosts, SitePermManageMedia,
			SitePermManageComments, SitePermViewAnalytics,
		}
	case SiteRoleWriter:
		return []SitePermission{SitePermCreatePosts, SitePermManageMedia}
	default:
		return []SitePermission{}
	}
}

// SiteUser is a user's membership in a site.
type SiteUser struct {
	ID          int64            `json:"id"`
	SiteID      int64            `json:"site_id"`
	UserID      int64            `json:"user_id"`
	Role        string           `json:"role"`
	Permissions []SitePermission `json:"permissions"`
	Status      string           `json:"status"`
	InvitedBy   sql.NullInt64    `json:"invited_by,omitempty"`
	JoinedAt    time.Time        `json:"joined_at"`
}

// IsActive returns true if the membership currently grants access.
func (m *SiteUser) IsActive() bool {
	return m.Status == MembershipActive
}

// Has returns true if the membership grants the site permission.
func (m *SiteUser) Has(p SitePermission) bool {
	return slices.Contains(m.Permissions, p)
}
