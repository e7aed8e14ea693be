// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/testutil"
)

func TestCreateSite(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user(t, "owner@example.com", model.RoleAuthor)

	rec := s.do(t, call{method: http.MethodPost, path: "/sites", token: token, body: map[string]any{
		"name": "My Blog", "subdomain": "My-Blog", "tagline": "Notes",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var site SiteResponse
	data(t, rec, &site)
	assert.Equal(t, "my-blog", site.Subdomain)
	assert.Equal(t, owner.ID, site.OwnerID)
	assert.Equal(t, model.PlanFree, site.Plan)
	assert.Equal(t, "Notes", site.Settings.Tagline)
	assert.Empty(t, site.CustomDomain)

	rec = s.do(t, call{method: http.MethodPost, path: "/sites", token: token, body: map[string]any{
		"name": "Other", "subdomain": "my-blog",
	}})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, apiError(t, rec).Error.Message, "already taken")

	rec = s.do(t, call{method: http.MethodPost, path: "/sites", token: token, body: map[string]any{
		"name": "Reserved", "subdomain": "admin",
	}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, apiError(t, rec).Error.Details, "subdomain")

	rec = s.do(t, call{method: http.MethodPost, path: "/sites", body: map[string]any{
		"name": "Anon", "subdomain": "anon-site",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListSites(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.user(t, "owner@example.com", model.RoleAuthor)
	member, memberToken := s.user(t, "member@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, s.db, owner.ID, "shared")
	testutil.AddMember(t, s.db, site.ID, member.ID, model.SiteRoleWriter)

	rec := s.do(t, call{method: http.MethodGet, path: "/sites", token: ownerToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var owned userSitesResponse
	data(t, rec, &owned)
	require.Len(t, owned.Owned, 1)
	assert.Empty(t, owned.Member)

	rec = s.do(t, call{method: http.MethodGet, path: "/sites", token: memberToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined userSitesResponse
	data(t, rec, &joined)
	assert.Empty(t, joined.Owned)
	require.Len(t, joined.Member, 1)
	assert.Equal(t, site.ID, joined.Member[0].ID)
}

func TestSiteAccess(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.user(t, "owner@example.com", model.RoleAuthor)
	_, strangerToken := s.user(t, "stranger@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, s.db, owner.ID, "private")
	path := "/sites/" + itoa(site.ID)

	rec := s.do(t, call{method: http.MethodGet, path: path, token: strangerToken})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: path, token: ownerToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/sites/999999", token: ownerToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/sites/abc", token: ownerToken})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSite(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user(t, "owner@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, s.db, owner.ID, "editable")
	path := "/sites/" + itoa(site.ID)

	rec := s.do(t, call{method: http.MethodPatch, path: path, token: token, body: map[string]any{
		"name": "Renamed", "type": "news",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated SiteResponse
	data(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, model.SiteTypeNews, updated.Type)

	rec = s.do(t, call{method: http.MethodPatch, path: path, token: token, body: map[string]any{"type": "forum"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Custom domains need a paid plan.
	rec = s.do(t, call{method: http.MethodPatch, path: path, token: token, body: map[string]any{"custom_domain": "blog.example.org"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, apiError(t, rec).Error.Details, "custom_domain")
}

func TestDeleteSite_OwnerOnly(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.user(t, "owner@example.com", model.RoleAuthor)
	admin, adminToken := s.user(t, "siteadmin@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, s.db, owner.ID, "doomed")
	testutil.AddMember(t, s.db, site.ID, admin.ID, model.SiteRoleAdmin)
	path := "/sites/" + itoa(site.ID)

	rec := s.do(t, call{method: http.MethodDelete, path: path, token: adminToken})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodDelete, path: path, token: ownerToken})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: path, token: ownerToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMembers(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.user(t, "owner@example.com", model.RoleAuthor)
	writer, writerToken := s.user(t, "writer@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, s.db, owner.ID, "team")
	testutil.AddMember(t, s.db, site.ID, owner.ID, model.SiteRoleAdmin)
	base := "/sites/" + itoa(site.ID) + "/members"

	rec := s.do(t, call{method: http.MethodPost, path: base, token: ownerToken, body: map[string]any{
		"user_id": writer.ID, "role": "writer",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var member MemberResponse
	data(t, rec, &member)
	assert.Equal(t, writer.ID, member.UserID)
	assert.Equal(t, model.SiteRoleWriter, member.Role)
	require.NotNil(t, member.InvitedBy)
	assert.Equal(t, owner.ID, *member.InvitedBy)

	rec = s.do(t, call{method: http.MethodPost, path: base, token: ownerToken, body: map[string]any{
		"user_id": writer.ID, "role": "owner",
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// A writer cannot manage the team.
	rec = s.do(t, call{method: http.MethodPost, path: base, token: writerToken, body: map[string]any{
		"user_id": owner.ID, "role": "editor",
	}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: base, token: ownerToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var members []MemberResponse
	data(t, rec, &members)
	assert.Len(t, members, 2)

	rec = s.do(t, call{method: http.MethodDelete, path: base + "/" + itoa(writer.ID), token: ownerToken})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestSubscriptionEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "owner@example.com", model.RoleAuthor)

	rec := s.do(t, call{method: http.MethodPost, path: "/sites", token: token, body: map[string]any{
		"name": "Paid", "subdomain": "paid-site",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var site SiteResponse
	data(t, rec, &site)
	base := "/sites/" + itoa(site.ID)

	rec = s.do(t, call{method: http.MethodGet, path: base + "/subscription", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sub SubscriptionResponse
	data(t, rec, &sub)
	assert.Equal(t, model.PlanFree, sub.Plan)

	rec = s.do(t, call{method: http.MethodPost, path: base + "/subscription/upgrade", token: token, body: map[string]any{
		"plan": "gold",
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: base + "/subscription/upgrade", token: token, body: map[string]any{
		"plan": "pro", "interval": "yearly",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data(t, rec, &sub)
	assert.Equal(t, model.PlanPro, sub.Plan)
	assert.Equal(t, model.BillingYearly, sub.BillingInterval)
	assert.NotNil(t, sub.NextBillingAt)

	rec = s.do(t, call{method: http.MethodGet, path: base + "/usage", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var usage service.Usage
	data(t, rec, &usage)
	assert.Equal(t, model.PlanPro, usage.Plan)
	assert.Equal(t, 1, usage.Users.Used)

	rec = s.do(t, call{method: http.MethodPost, path: base + "/subscription/cancel", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cancelled SubscriptionResponse
	data(t, rec, &cancelled)
	assert.Equal(t, model.SubscriptionCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Nil(t, cancelled.NextBillingAt)

	rec = s.do(t, call{method: http.MethodGet, path: base, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data(t, rec, &site)
	assert.Equal(t, model.PlanFree, site.Plan)
}
