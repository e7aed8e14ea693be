// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import (
	"errors"
	"fmt"
	"slices"

	"github.com/olegiv/sitehub/internal/model"
)

// ErrRoleNotFound is returned when a role name is not in the registry.
var ErrRoleNotFound = errors.New("role not found")

// Registry is an immutable snapshot of the role table. It is built once at
// startup and shared by the evaluator and the site boundary.
type Registry struct {
	roles map[string]model.Role
	order []string
}

// NewRegistry validates roles and builds a registry snapshot.
func NewRegistry(roles []model.Role) (*Registry, error) {
	r := &Registry{roles: make(map[string]model.Role, len(roles))}

	for _, role := range roles {
		if !model.IsKnownRole(role.Name) {
			return nil, fmt.Errorf("unknown role name %q", role.Name)
		}
		if _, dup := r.roles[role.Name]; dup {
			return nil, fmt.Errorf("duplicate role %q", role.Name)
		}
		if role.Level < model.MinRoleLevel || role.Level > model.MaxRoleLevel {
			return nil, fmt.Errorf("role %q: level %d out of range", role.Name, role.Level)
		}
		if role.Scope != model.RoleScopePlatform && role.Scope != model.RoleScopeSite {
			return nil, fmt.Errorf("role %q: invalid scope %q", role.Name, role.Scope)
		}
		for _, p := range role.Permissions {
			if !model.IsValidPermission(p) {
				return nil, fmt.Errorf("role %q: unknown permission %q", role.Name, p)
			}
		}

		role.Permissions = slices.Clone(role.Permissions)
		r.roles[role.Name] = role
		r.order = append(r.order, role.Name)
	}

	return r, nil
}

// MustDefaultRegistry builds a registry from DefaultCatalog and panics on error.
func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultCatalog())
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the role with the given name.
func (r *Registry) Get(name string) (model.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return model.Role{}, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	role.Permissions = slices.Clone(role.Permissions)
	return role, nil
}

// Permissions returns the permission set of a role, or nil for unknown roles.
func (r *Registry) Permissions(name string) []model.Permission {
	role, ok := r.roles[name]
	if !ok {
		return nil
	}
	return slices.Clone(role.Permissions)
}

// Roles returns every role in catalog order.
func (r *Registry) Roles() []model.Role {
	out := make([]model.Role, 0, len(r.order))
	for _, name := range r.order {
		role, _ := r.Get(name)
		out = append(out, role)
	}
	return out
}

// has reports whether the named role grants p without copying.
func (r *Registry) has(name string, p model.Permission) bool {
	role, ok := r.roles[name]
	return ok && slices.Contains(role.Permissions, p)
}

func (r *Registry) level(name string) (int, bool) {
	role, ok := r.roles[name]
	return role.Level, ok
}
