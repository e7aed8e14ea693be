// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestIsKnownRole(t *testing.T) {
	runHasItemTests(t, []hasItemTest{
		{item: RoleVisitor, want: true},
		{item: RoleContributor, want: true},
		{item: RoleSuperAdmin, want: true},
		{item: RoleSiteAdmin, want: true},
		{item: RoleWriter, want: true},
		{item: "owner", want: false},
		{item: "Admin", want: false},
		{item: "", want: false},
	}, IsKnownRole)
}

func TestIsValidPermission(t *testing.T) {
	runHasItemTests(t, []hasItemTest{
		{item: string(PermViewPosts), want: true},
		{item: string(PermManageSites), want: true},
		{item: string(PermSubmitForReview), want: true},
		{item: "manage_content", want: false},
		{item: "fly", want: false},
	}, func(s string) bool { return IsValidPermission(Permission(s)) })
}

func TestIsValidSitePermission(t *testing.T) {
	runHasItemTests(t, []hasItemTest{
		{item: string(SitePermManageContent), want: true},
		{item: string(SitePermManageSettings), want: true},
		{item: "edit_all_posts", want: false},
	}, func(s string) bool { return IsValidSitePermission(SitePermission(s)) })
}

func TestRoleHas(t *testing.T) {
	r := Role{Name: RoleAuthor, Scope: RoleScopePlatform, Permissions: []Permission{PermCreatePosts, PermPublishPosts}}

	if !r.Has(PermPublishPosts) {
		t.Error("Has(publish_posts) = false, want true")
	}
	if r.Has(PermEditAllPosts) {
		t.Error("Has(edit_all_posts) = true, want false")
	}
	if !r.IsPlatform() {
		t.Error("IsPlatform() = false, want true")
	}
}
