// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Permission is a single capability token from the closed platform vocabulary.
type Permission string

// Content permissions
const (
	PermViewPosts       Permission = "view_posts"
	PermCreatePosts     Permission = "create_posts"
	PermEditOwnPosts    Permission = "edit_own_posts"
	PermEditAllPosts    Permission = "edit_all_posts"
	PermDeleteOwnPosts  Permission = "delete_own_posts"
	PermDeleteAllPosts  Permission = "delete_all_posts"
	PermPublishPosts    Permission = "publish_posts"
	PermCreateDrafts    Permission = "create_drafts"
	PermSubmitForReview Permission = "submit_for_review"
)

// Media permissions
const (
	PermUploadMedia    Permission = "upload_media"
	PermManageOwnMedia Permission = "manage_own_media"
	PermManageAllMedia Permission = "manage_all_media"
)

// User permissions
const (
	PermCreateUsers    Permission = "create_users"
	PermEditUsers      Permission = "edit_users"
	PermDeleteUsers    Permission = "delete_users"
	PermManageRoles    Permission = "manage_roles"
	PermViewProfile    Permission = "view_profile"
	PermEditOwnProfile Permission = "edit_own_profile"
)

// Taxonomy, comment and page permissions
const (
	PermManageCategories  Permission = "manage_categories"
	PermManageTags        Permission = "manage_tags"
	PermCreateComments    Permission = "create_comments"
	PermModerateComments  Permission = "moderate_comments"
	PermDeleteComments    Permission = "delete_comments"
	PermManageOwnComments Permission = "manage_own_comments"
	PermCreatePages       Permission = "create_pages"
	PermEditPages         Permission = "edit_pages"
	PermDeletePages       Permission = "delete_pages"
)

// Settings and system permissions
const (
	PermManageSettings  Permission = "manage_settings"
	PermViewAnalytics   Permission = "view_analytics"
	PermAccessDashboard Permission = "access_dashboard"
	PermManagePlugins   Permission = "manage_plugins"
	PermManageThemes    Permission = "manage_themes"
	PermManageSites     Permission = "manage_sites"
)

// platformPermissions is the closed vocabulary for Role permission sets.
var platformPermissions = map[Permission]struct{}{
	PermViewPosts: {}, PermCreatePosts: {}, PermEditOwnPosts: {}, PermEditAllPosts: {},
	PermDeleteOwnPosts: {}, PermDeleteAllPosts: {}, PermPublishPosts: {}, PermCreateDrafts: {},
	PermSubmitForReview: {}, PermUploadMedia: {}, PermManageOwnMedia: {}, PermManageAllMedia: {},
	PermCreateUsers: {}, PermEditUsers: {}, PermDeleteUsers: {}, PermManageRoles: {},
	PermViewProfile: {}, PermEditOwnProfile: {}, PermManageCategories: {}, PermManageTags: {},
	PermCreateComments: {}, PermModerateComments: {}, PermDeleteComments: {}, PermManageOwnComments: {},
	PermCreatePages: {}, PermEditPages: {}, PermDeletePages: {}, PermManageSettings: {},
	PermViewAnalytics: {}, PermAccessDashboard: {}, PermManagePlugins: {}, PermManageThemes: {},
	PermManageSites: {},
}

// IsValidPermission reports whether p belongs to the platform vocabulary.
func IsValidPermission(p Permission) bool {
	_, ok := platformPermissions[p]
	return ok
}

// SitePermission is a capability token granted through a site membership.
// The site vocabulary is independent of the platform one.
type SitePermission string

// Site permissions
const (
	SitePermManageSite     SitePermission = "manage_site"
	SitePermManageUsers    SitePermission = "manage_users"
	SitePermManageContent  SitePermission = "manage_content"
	SitePermPublishPosts   SitePermission = "publish_posts"
	SitePermCreatePosts    SitePermission = "create_posts"
	SitePermEditPosts      SitePermission = "edit_posts"
	SitePermDeletePosts    SitePermission = "delete_posts"
	SitePermManageMedia    SitePermission = "manage_media"
	SitePermManageComments SitePermission = "manage_comments"
	SitePermViewAnalytics  SitePermission = "view_analytics"
	SitePermManageSettings SitePermission = "manage_settings"
)

// AllSitePermissions lists the site vocabulary in display order.
var AllSitePermissions = []SitePermission{
	SitePermManageSite,
	SitePermManageUsers,
	SitePermManageContent,
	SitePermPublishPosts,
	SitePermCreatePosts,
	SitePermEditPosts,
	SitePermDeletePosts,
	SitePermManageMedia,
	SitePermManageComments,
	SitePermViewAnalytics,
	SitePermManageSettings,
}

// IsValidSitePermission reports whether p belongs to the site vocabulary.
func IsValidSitePermission(p SitePermission) bool {
	for _, known := range AllSitePermissions {
		if p == known {
			return true
		}
	}
	return false
}
