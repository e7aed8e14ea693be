// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import "github.com/olegiv/sitehub/internal/model"

// PostAction is an operation on a post.
type PostAction string

// Post actions
const (
	ActionRead    PostAction = "read"
	ActionCreate  PostAction = "create"
	ActionEdit    PostAction = "edit"
	ActionPublish PostAction = "publish"
	ActionDelete  PostAction = "delete"
	ActionArchive PostAction = "archive"
)

// AuthorizePost decides whether p may perform action on post inside scope.
// For ActionCreate and ActionPublish of a new post, pass a post whose
// AuthorID is the caller.
//
// Checks are layered: the platform override, the site boundary, public
// reads, the site context, site access, the platform role matrix, and
// finally site grants which can only elevate.
func (e *Evaluator) AuthorizePost(p *Principal, scope *SiteScope, action PostAction, post *model.Post) Decision {
	if p.IsSuperAdmin() {
		return Allow()
	}
	if scope != nil && post != nil && post.SiteID != 0 && post.SiteID != scope.SiteID {
		return Deny(ReasonNoSiteAccess, "")
	}
	if action == ActionRead && post != nil && post.IsPublished() {
		return Allow()
	}
	if p == nil {
		return Deny(ReasonUnauthenticated, "")
	}
	if scope == nil {
		return Deny(ReasonSiteContextRequired, "")
	}

	owner := scope.IsOwner(p.UserID)
	if !owner {
		if d := scope.memberAccess(); !d.Allowed {
			return d
		}
	}

	d := e.postMatrix(p, action, post)
	if d.Allowed || d.Reason == ReasonNoRole {
		return d
	}
	if owner || siteGrantsPost(scope, action) {
		return Allow()
	}
	return d
}

// CanPublish reports whether p may publish its own new post inside scope.
// Callers without it have any requested status other than draft clamped
// to draft.
func (e *Evaluator) CanPublish(p *Principal, scope *SiteScope) bool {
	var siteID int64
	if scope != nil {
		siteID = scope.SiteID
	}
	own := &model.Post{SiteID: siteID, AuthorID: p.UserID, Status: model.PostStatusDraft}
	return e.AuthorizePost(p, scope, ActionPublish, own).Allowed
}

// postMatrix applies the platform role matrix. It is driven by the
// registry's permission sets rather than role names.
func (e *Evaluator) postMatrix(p *Principal, action PostAction, post *model.Post) Decision {
	role, err := e.role(p.Role.Name)
	if err != nil {
		return Deny(ReasonNoRole, "")
	}

	own := post != nil && e.Authorize(p, Ownership(post, "author")).Allowed

	switch action {
	case ActionCreate:
		return e.Authorize(p, AnyPermission(model.PermCreatePosts, model.PermCreateDrafts))

	case ActionRead:
		if own || role.Has(model.PermEditAllPosts) {
			return Allow()
		}
		return Deny(ReasonNotOwner, "author")

	case ActionEdit:
		return e.editDecision(role, own, post)

	case ActionPublish:
		if !role.Has(model.PermPublishPosts) {
			return Deny(ReasonMissingPermission, string(model.PermPublishPosts))
		}
		return e.editDecision(role, own, post)

	case ActionDelete:
		if role.Has(model.PermDeleteAllPosts) || (own && role.Has(model.PermDeleteOwnPosts)) {
			return Allow()
		}
		if own {
			return Deny(ReasonMissingPermission, string(model.PermDeleteOwnPosts))
		}
		return Deny(ReasonMissingPermission, string(model.PermDeleteAllPosts))

	case ActionArchive:
		if e.Authorize(p, MinLevel(e.archiveLevel)).Allowed {
			return Allow()
		}
		return Deny(ReasonInsufficientLevel, model.RoleEditor)
	}

	return Deny(ReasonRoleNotAllowed, string(action))
}

// editDecision: edit_all_posts edits anything; edit_own_posts edits the
// caller's posts, restricted to drafts when the role cannot publish.
func (e *Evaluator) editDecision(role model.Role, own bool, post *model.Post) Decision {
	if role.Has(model.PermEditAllPosts) {
		return Allow()
	}
	if !own {
		return Deny(ReasonMissingPermission, string(model.PermEditAllPosts))
	}
	if !role.Has(model.PermEditOwnPosts) {
		return Deny(ReasonMissingPermission, string(model.PermEditOwnPosts))
	}
	if !role.Has(model.PermPublishPosts) && (post == nil || !post.IsDraft()) {
		return Deny(ReasonMissingPermission, string(model.PermPublishPosts))
	}
	return Allow()
}

// siteGrantsPost maps a post action to the membership permission that
// grants it. manage_content grants every post action.
func siteGrantsPost(scope *SiteScope, action PostAction) bool {
	if scope.Grants(model.SitePermManageContent) {
		return true
	}
	switch action {
	case ActionCreate:
		return scope.Grants(model.SitePermCreatePosts)
	case ActionEdit:
		return scope.Grants(model.SitePermEditPosts)
	case ActionDelete:
		return scope.Grants(model.SitePermDeletePosts)
	case ActionPublish:
		return scope.Grants(model.SitePermPublishPosts)
	}
	return false
}
