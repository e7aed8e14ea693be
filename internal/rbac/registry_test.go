// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rbac

import (
	"errors"
	"testing"

	"github.com/olegiv/sitehub/internal/model"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := len(r.Roles()); got != 9 {
		t.Errorf("len(Roles()) = %d, want 9", got)
	}
}

func TestDefaultCatalogLadder(t *testing.T) {
	r := MustDefaultRegistry()

	ladder := []string{
		model.RoleVisitor, model.RoleSubscriber, model.RoleContributor, model.RoleAuthor,
		model.RoleEditor, model.RoleAdmin, model.RoleSuperAdmin,
	}
	for i, name := range ladder {
		role, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if role.Level != i {
			t.Errorf("%s level = %d, want %d", name, role.Level, i)
		}
		if !role.IsPlatform() {
			t.Errorf("%s scope = %q, want platform", name, role.Scope)
		}
	}

	for _, name := range []string{model.RoleSiteAdmin, model.RoleWriter} {
		role, _ := r.Get(name)
		if role.Scope != model.RoleScopeSite {
			t.Errorf("%s scope = %q, want site", name, role.Scope)
		}
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := MustDefaultRegistry()
	_, err := r.Get("owner")
	if !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("Get(owner) error = %v, want ErrRoleNotFound", err)
	}
	if perms := r.Permissions("owner"); perms != nil {
		t.Errorf("Permissions(owner) = %v, want nil", perms)
	}
}

func TestRegistryRejectsInvalidRoles(t *testing.T) {
	valid := model.Role{Name: model.RoleAuthor, Scope: model.RoleScopePlatform, Level: 3}

	tests := []struct {
		name  string
		roles []model.Role
	}{
		{"unknown name", []model.Role{{Name: "owner", Scope: model.RoleScopePlatform}}},
		{"duplicate", []model.Role{valid, valid}},
		{"level too high", []model.Role{{Name: model.RoleAdmin, Scope: model.RoleScopePlatform, Level: 9}}},
		{"negative level", []model.Role{{Name: model.RoleAdmin, Scope: model.RoleScopePlatform, Level: -1}}},
		{"bad scope", []model.Role{{Name: model.RoleAdmin, Scope: "galaxy", Level: 5}}},
		{"unknown permission", []model.Role{{Name: model.RoleAdmin, Scope: model.RoleScopePlatform, Level: 5, Permissions: []model.Permission{"fly"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.roles); err == nil {
				t.Error("NewRegistry() error = nil, want error")
			}
		})
	}
}

func TestRegistrySnapshotIsImmutable(t *testing.T) {
	catalog := DefaultCatalog()
	r, err := NewRegistry(catalog)
	if err != nil {
		t.Fatal(err)
	}

	catalog[3].Permissions[0] = model.PermManageSites
	perms := r.Permissions(model.RoleAuthor)
	perms[0] = model.PermManageSites

	if r.Permissions(model.RoleAuthor)[0] != model.PermViewPosts {
		t.Error("registry snapshot was mutated through a returned slice")
	}
}

func TestSuperAdminHasManageSites(t *testing.T) {
	r := MustDefaultRegistry()
	if !r.has(model.RoleSuperAdmin, model.PermManageSites) {
		t.Error("super_admin should grant manage_sites")
	}
	if r.has(model.RoleAdmin, model.PermManageSites) {
		t.Error("admin should not grant manage_sites")
	}
}
