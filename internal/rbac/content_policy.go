// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import "github.com/olegiv/sitehub/internal/model"

// CommentAction is an operation on a comment.
type CommentAction string

// Comment actions
const (
	CommentCreate   CommentAction = "create"
	CommentModerate CommentAction = "moderate"
	CommentDelete   CommentAction = "delete"
)

// commentModerators are the platform roles that moderate inside any site
// they can access.
var commentModerators = []string{model.RoleEditor, model.RoleAdmin}

// AuthorizeComment decides whether p may perform action on comment inside
// scope. For CommentCreate and CommentModerate the comment may be nil.
//
// Any account at subscriber level or above may comment on a site it can
// read. Moderation needs site access plus ownership of the site, a
// manage_comments or manage_content grant, or an editor or admin role.
// Authors may always delete their own comments.
func (e *Evaluator) AuthorizeComment(p *Principal, scope *SiteScope, action CommentAction, comment *model.Comment) Decision {
	if p == nil {
		return Deny(ReasonUnauthenticated, "")
	}
	if scope == nil {
		return Deny(ReasonSiteContextRequired, "")
	}
	if comment != nil && comment.SiteID != scope.SiteID && !p.IsSuperAdmin() {
		return Deny(ReasonNoSiteAccess, "")
	}

	switch action {
	case CommentCreate:
		return e.Authorize(p, MinLevel(e.commentLevel))

	case CommentModerate:
		return e.moderate(p, scope)

	case CommentDelete:
		if comment != nil && owns(p, comment, "author") {
			return Allow()
		}
		if d := e.RequireSiteAccess(p, scope, ""); !d.Allowed {
			return d
		}
		if comment != nil && e.Authorize(p, Ownership(comment, "author")).Allowed {
			return Allow()
		}
		return e.moderate(p, scope)
	}

	return Deny(ReasonRoleNotAllowed, string(action))
}

func (e *Evaluator) moderate(p *Principal, scope *SiteScope) Decision {
	if d := e.RequireSiteAccess(p, scope, ""); !d.Allowed {
		return d
	}
	if scope.IsOwner(p.UserID) || scope.Grants(model.SitePermManageComments) ||
		scope.Grants(model.SitePermManageContent) {
		return Allow()
	}
	return e.Authorize(p, AnyRole(commentModerators...))
}

// AuthorizeTaxonomy decides whether p may change the categories or tags of
// the site in scope. perm is PermManageCategories or PermManageTags.
func (e *Evaluator) AuthorizeTaxonomy(p *Principal, scope *SiteScope, perm model.Permission) Decision {
	if d := e.RequireSiteAccess(p, scope, ""); !d.Allowed {
		return d
	}
	if scope.IsOwner(p.UserID) || scope.Grants(model.SitePermManageContent) {
		return Allow()
	}
	return e.Authorize(p, HasPermission(perm))
}
