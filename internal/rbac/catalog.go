// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rbac implements the role registry and the authorization evaluator
// that gates every mutating operation on users, sites and posts.
package rbac

import "github.com/olegiv/sitehub/internal/model"

// DefaultCatalog returns the code-defined role table. Reseeding the roles
// table from this catalog removes any role that is not listed here.
func DefaultCatalog() []model.Role {
	return []model.Role{
		{
			Name:        model.RoleVisitor,
			DisplayName: "Visitor",
			Description: "Unauthenticated user with read-only access",
			Scope:       model.RoleScopePlatform,
			Level:       0,
			Permissions: []model.Permission{model.PermViewPosts},
		},
		{
			Name:        model.RoleSubscriber,
			DisplayName: "Subscriber",
			Description: "Authenticated reader with comment privileges",
			Scope:       model.RoleScopePlatform,
			Level:       1,
			Permissions: []model.Permission{
				model.PermViewPosts, model.PermCreateComments, model.PermViewProfile,
				model.PermEditOwnProfile, model.PermManageOwnComments,
			},
		},
		{
			Name:        model.RoleContributor,
			DisplayName: "Contributor",
			Description: "Can create drafts and submit for review",
			Scope:       model.RoleScopePlatform,
			Level:       2,
			Permissions: []model.Permission{
				model.PermViewPosts, model.PermCreateDrafts, model.PermEditOwnPosts,
				model.PermSubmitForReview, model.PermViewProfile, model.PermEditOwnProfile,
				model.PermAccessDashboard,
			},
		},
		{
			Name:        model.RoleAuthor,
			DisplayName: "Author",
			Description: "Can create, edit, publish and delete own posts",
			Scope:       model.RoleScopePlatform,
			Level:       3,
			Permissions: []model.Permission{
				model.PermViewPosts, model.PermCreatePosts, model.PermEditOwnPosts,
				model.PermDeleteOwnPosts, model.PermPublishPosts, model.PermUploadMedia,
				model.PermManageOwnMedia, model.PermViewProfile, model.PermEditOwnProfile,
				model.PermAccessDashboard,
			},
		},
		{
			Name:        model.RoleEditor,
			DisplayName: "Editor",
			Description: "Can manage all content, pages, categories and moderate comments",
			Scope:       model.RoleScopePlatform,
			Level:       4,
			Permissions: append(editorPermissions(), model.PermViewProfile, model.PermEditOwnProfile),
		},
		{
			Name:        model.RoleAdmin,
			DisplayName: "Admin",
			Description: "Full access to content, users, and site settings",
			Scope:       model.RoleScopePlatform,
			Level:       5,
			Permissions: adminPermissions(),
		},
		{
			Name:        model.RoleSuperAdmin,
			DisplayName: "Super Admin",
			Description: "System-wide access for multi-tenant management",
			Scope:       model.RoleScopePlatform,
			Level:       6,
			Permissions: append(adminPermissions(), model.PermManageSites),
		},
		{
			Name:        model.RoleSiteAdmin,
			DisplayName: "Site Administrator",
			Description: "Full control over their own site",
			Scope:       model.RoleScopeSite,
			Level:       6,
			Permissions: []model.Permission{
				model.PermManageSites, model.PermCreateUsers, model.PermManageRoles,
				model.PermCreatePosts, model.PermEditAllPosts, model.PermDeleteAllPosts, model.PermPublishPosts,
				model.PermUploadMedia, model.PermManageAllMedia,
				model.PermManageCategories, model.PermManageTags,
				model.PermModerateComments, model.PermDeleteComments,
				model.PermCreatePages, model.PermEditPages, model.PermDeletePages,
				model.PermManageSettings, model.PermViewAnalytics,
				model.PermAccessDashboard, model.PermManageThemes,
			},
		},
		{
			Name:        model.RoleWriter,
			DisplayName: "Writer",
			Description: "Can create and edit drafts, submit for review",
			Scope:       model.RoleScopeSite,
			Level:       2,
			Permissions: []model.Permission{
				model.PermViewPosts, model.PermCreatePosts, model.PermEditOwnPosts,
				model.PermCreateDrafts, model.PermSubmitForReview,
				model.PermUploadMedia, model.PermManageOwnMedia,
				model.PermCreateComments, model.PermManageOwnComments,
				model.PermViewProfile, model.PermEditOwnProfile,
				model.PermAccessDashboard,
			},
		},
	}
}

func editorPermissions() []model.Permission {
	return []model.Permission{
		model.PermViewPosts, model.PermCreatePosts, model.PermEditAllPosts,
		model.PermDeleteAllPosts, model.PermPublishPosts,
		model.PermCreatePages, model.PermEditPages, model.PermDeletePages,
		model.PermManageCategories, model.PermManageTags,
		model.PermUploadMedia, model.PermManageAllMedia,
		model.PermModerateComments, model.PermDeleteComments,
		model.PermViewAnalytics, model.PermAccessDashboard,
	}
}

func adminPermissions() []model.Permission {
	return append(editorPermissions(),
		model.PermCreateUsers, model.PermEditUsers, model.PermDeleteUsers,
		model.PermManageRoles, model.PermManageSettings,
		model.PermManagePlugins, model.PermManageThemes,
	)
}
