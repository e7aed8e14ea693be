// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import "github.com/olegiv/sitehub/internal/model"

// SiteScope is the caller's standing inside one site: whether they own it
// and their membership record if any. A nil *SiteScope means no site context.
type SiteScope struct {
	SiteID     int64
	OwnerID    int64
	Membership *model.SiteUser
}

// NewSiteScope builds a scope from a site and the caller's membership, which
// may be nil.
func NewSiteScope(site *model.Site, membership *model.SiteUser) *SiteScope {
	if site == nil {
		return nil
	}
	return &SiteScope{SiteID: site.ID, OwnerID: site.OwnerID, Membership: membership}
}

// IsOwner reports whether userID owns the site.
func (s *SiteScope) IsOwner(userID int64) bool {
	return s != nil && userID != 0 && s.OwnerID == userID
}

// Grants reports whether an active membership carries perm.
func (s *SiteScope) Grants(perm model.SitePermission) bool {
	if s == nil || s.Membership == nil || !s.Membership.IsActive() {
		return false
	}
	return s.Membership.Has(perm)
}

func (s *SiteScope) memberAccess() Decision {
	switch {
	case s.Membership == nil:
		return Deny(ReasonNoSiteAccess, "")
	case !s.Membership.IsActive():
		return Deny(ReasonInactiveMembership, s.Membership.Status)
	}
	return Allow()
}
