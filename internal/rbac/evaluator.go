// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/olegiv/sitehub/internal/model"
)

// Reason explains why a decision denied access.
type Reason string

// Deny reasons
const (
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonNoRole              Reason = "no_role"
	ReasonRoleNotAllowed      Reason = "role_not_allowed"
	ReasonMissingPermission   Reason = "missing_permission"
	ReasonInsufficientLevel   Reason = "insufficient_level"
	ReasonNotOwner            Reason = "not_owner"
	ReasonSiteContextRequired Reason = "site_context_required"
	ReasonNoSiteAccess        Reason = "no_site_access"
	ReasonInactiveMembership  Reason = "inactive_membership"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Missing names the role set, permission token or level that was lacking.
	Missing string
}

// Allow returns a granting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision.
func Deny(reason Reason, missing string) Decision {
	return Decision{Reason: reason, Missing: missing}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	if d.Missing == "" {
		return "deny: " + string(d.Reason)
	}
	return fmt.Sprintf("deny: %s (%s)", d.Reason, d.Missing)
}

// Owned is implemented by resources that can name their owner.
type Owned interface {
	OwnerOf(field string) (int64, bool)
}

type requirementKind int

const (
	kindRole requirementKind = iota
	kindPermission
	kindAnyPermission
	kindLevel
	kindOwnership
)

// Requirement is a capability a caller must hold.
type Requirement struct {
	kind        requirementKind
	roles       []string
	permissions []model.Permission
	level       int
	resource    Owned
	field       string
}

// AnyRole requires the effective role to be one of names.
func AnyRole(names ...string) Requirement {
	return Requirement{kind: kindRole, roles: names}
}

// HasPermission requires the resolved role to grant p.
func HasPermission(p model.Permission) Requirement {
	return Requirement{kind: kindPermission, permissions: []model.Permission{p}}
}

// AnyPermission requires the resolved role to grant at least one of perms.
func AnyPermission(perms ...model.Permission) Requirement {
	return Requirement{kind: kindAnyPermission, permissions: perms}
}

// MinLevel requires the resolved role level to be at least n.
func MinLevel(n int) Requirement {
	return Requirement{kind: kindLevel, level: n}
}

// Ownership requires the caller to own resource through field, unless the
// effective role is in the ownership override set.
func Ownership(resource Owned, field string) Requirement {
	return Requirement{kind: kindOwnership, resource: resource, field: field}
}

// ownershipOverride roles pass every ownership check.
var ownershipOverride = []string{model.RoleAdmin, model.RoleSuperAdmin}

// Evaluator makes authorization decisions against a registry snapshot.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	registry     *Registry
	archiveLevel int
	commentLevel int
}

// NewEvaluator creates an evaluator bound to registry.
func NewEvaluator(registry *Registry) *Evaluator {
	archiveLevel, ok := registry.level(model.RoleEditor)
	if !ok {
		archiveLevel = model.MaxRoleLevel + 1
	}
	commentLevel, ok := registry.level(model.RoleSubscriber)
	if !ok {
		commentLevel = model.MaxRoleLevel + 1
	}
	return &Evaluator{registry: registry, archiveLevel: archiveLevel, commentLevel: commentLevel}
}

// Registry returns the snapshot the evaluator decides against.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Authorize decides whether p satisfies req. It has no side effects.
func (e *Evaluator) Authorize(p *Principal, req Requirement) Decision {
	if p == nil {
		return Deny(ReasonUnauthenticated, "")
	}
	if p.IsSuperAdmin() {
		return Allow()
	}

	name := p.Role.Name

	switch req.kind {
	case kindRole:
		if name == "" {
			return Deny(ReasonNoRole, strings.Join(req.roles, ","))
		}
		if slices.Contains(req.roles, name) {
			return Allow()
		}
		return Deny(ReasonRoleNotAllowed, strings.Join(req.roles, ","))

	case kindPermission, kindAnyPermission:
		role, err := e.role(name)
		if err != nil {
			return Deny(ReasonNoRole, "")
		}
		for _, perm := range req.permissions {
			if role.Has(perm) {
				return Allow()
			}
		}
		return Deny(ReasonMissingPermission, joinPermissions(req.permissions))

	case kindLevel:
		role, err := e.role(name)
		if err != nil {
			return Deny(ReasonNoRole, "")
		}
		if role.Level >= req.level {
			return Allow()
		}
		return Deny(ReasonInsufficientLevel, strconv.Itoa(req.level))

	case kindOwnership:
		if slices.Contains(ownershipOverride, name) {
			return Allow()
		}
		if !owns(p, req.resource, req.field) {
			return Deny(ReasonNotOwner, req.field)
		}
		return Allow()
	}

	return Deny(ReasonRoleNotAllowed, "")
}

// owns reports whether p is the owner of resource through field. Unlike
// the Ownership requirement it grants no role override.
func owns(p *Principal, resource Owned, field string) bool {
	if p == nil || resource == nil || p.UserID == 0 {
		return false
	}
	ownerID, ok := resource.OwnerOf(field)
	return ok && ownerID == p.UserID
}

// RequireSiteAccess checks that p may act inside scope, and when perm is
// non-empty that the membership grants it. Owners pass every check.
func (e *Evaluator) RequireSiteAccess(p *Principal, scope *SiteScope, perm model.SitePermission) Decision {
	if scope == nil {
		return Deny(ReasonSiteContextRequired, "")
	}
	if p == nil {
		return Deny(ReasonUnauthenticated, "")
	}
	if p.IsSuperAdmin() || scope.IsOwner(p.UserID) {
		return Allow()
	}
	if d := scope.memberAccess(); !d.Allowed {
		return d
	}
	if perm != "" && !scope.Membership.Has(perm) {
		return Deny(ReasonMissingPermission, string(perm))
	}
	return Allow()
}

// role resolves the effective role name against the registry. Site-scoped
// records are never used for platform decisions.
func (e *Evaluator) role(name string) (model.Role, error) {
	if name == "" {
		return model.Role{}, ErrRoleNotFound
	}
	role, err := e.registry.Get(name)
	if err != nil {
		return model.Role{}, err
	}
	if !role.IsPlatform() {
		return model.Role{}, fmt.Errorf("%w: %s is site-scoped", ErrRoleNotFound, name)
	}
	return role, nil
}

func joinPermissions(perms []model.Permission) string {
	s := make([]string, len(perms))
	for i, p := range perms {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}
