// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/testutil"
)

type invalidations struct {
	mu  sync.Mutex
	ids []int64
}

func (i *invalidations) Invalidate(_ context.Context, siteID int64, _ string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, siteID)
}

func newTestSiteService(t *testing.T) (*SiteService, *sql.DB, *invalidations) {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()
	inv := &invalidations{}
	svc := NewSiteService(db, rbac.NewEvaluator(rbac.MustDefaultRegistry()), inv, NewEventService(db, logger), logger)
	// Background seeding must finish before the database closes.
	t.Cleanup(svc.WaitInitialized)
	return svc, db, inv
}

func principalFor(t *testing.T, db *sql.DB, email, role string) *rbac.Principal {
	t.Helper()
	u := testutil.CreateUser(t, db, email, role)
	return rbac.NewPrincipal(&u)
}

func TestCheckSubdomain(t *testing.T) {
	svc, db, _ := newTestSiteService(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", model.RoleAuthor)
	testutil.CreateSite(t, db, owner.ID, "taken")

	tests := []struct {
		in        string
		available bool
	}{
		{"fresh", true},
		{"  Fresh-Name ", true},
		{"taken", false},
		{"TAKEN", false},
		{"www", false},
		{"blog", false},
		{"ab", false},
		{"bad_name", false},
		{"-edge", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := svc.CheckSubdomain(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.available, got.Available, got.Message)
		})
	}
}

func TestCreateSite(t *testing.T) {
	svc, db, _ := newTestSiteService(t)
	ctx := context.Background()
	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)

	site, err := svc.CreateSite(ctx, owner, SiteInput{Name: "My Site", Subdomain: "MySite", Tagline: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "mysite", site.Subdomain)
	assert.Equal(t, model.SiteTypeBlog, site.Type)
	assert.Equal(t, model.PlanFree, site.Plan)
	assert.Equal(t, "hi", site.Settings.Tagline)
	assert.Equal(t, 1, site.Features.MaxUsers)

	members, err := svc.ListMembers(ctx, owner, site.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, model.SiteRoleAdmin, members[0].Role)
	assert.ElementsMatch(t, model.AllSitePermissions, members[0].Permissions)

	sub, err := svc.queries.GetSubscriptionBySite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, sub.Plan)
	assert.Equal(t, int64(0), sub.AmountCents)

	svc.WaitInitialized()
	seeded, err := svc.queries.GetSiteByID(ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, seeded.IsInitialized)
	assert.Equal(t, int64(1), seeded.TotalPosts)

	welcome, err := svc.queries.GetPostBySlug(ctx, site.ID, "welcome")
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, welcome.Status)
	assert.Equal(t, owner.UserID, welcome.AuthorID)

	_, err = svc.CreateSite(ctx, owner, SiteInput{Name: "Again", Subdomain: "mysite"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateSite_Validation(t *testing.T) {
	svc, db, _ := newTestSiteService(t)
	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)

	tests := []struct {
		name  string
		in    SiteInput
		field string
	}{
		{"missing name", SiteInput{Subdomain: "valid"}, "name"},
		{"reserved", SiteInput{Name: "n", Subdomain: "admin"}, "subdomain"},
		{"too short", SiteInput{Name: "n", Subdomain: "ab"}, "subdomain"},
		{"bad type", SiteInput{Name: "n", Subdomain: "valid", Type: "forum"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSite(context.Background(), owner, tt.in)
			requireInvalid(t, err, tt.field)
		})
	}

	_, err := svc.CreateSite(context.Background(), nil, SiteInput{Name: "n", Subdomain: "valid"})
	requireDenied(t, err, rbac.ReasonUnauthenticated)
}

func TestUpdateSite(t *testing.T) {
	svc, db, inv := newTestSiteService(t)
	ctx := context.Background()

	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)
	manager := principalFor(t, db, "manager@example.com", model.RoleAuthor)
	writer := principalFor(t, db, "writer@example.com", model.RoleAuthor)
	outsider := principalFor(t, db, "out@example.com", model.RoleAdmin)

	site := testutil.CreateSite(t, db, owner.UserID, "updates")
	testutil.AddMember(t, db, site.ID, manager.UserID, model.SiteRoleAdmin)
	testutil.AddMember(t, db, site.ID, writer.UserID, model.SiteRoleWriter)

	name := "Renamed"
	updated, err := svc.UpdateSite(ctx, owner, site.ID, SiteUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, site.Subdomain, updated.Subdomain)

	name = "By manager"
	_, err = svc.UpdateSite(ctx, manager, site.ID, SiteUpdate{Name: &name})
	require.NoError(t, err)

	_, err = svc.UpdateSite(ctx, writer, site.ID, SiteUpdate{Name: &name})
	requireDenied(t, err, rbac.ReasonMissingPermission)

	_, err = svc.UpdateSite(ctx, outsider, site.ID, SiteUpdate{Name: &name})
	requireDenied(t, err, rbac.ReasonNoSiteAccess)

	domain := "example.org"
	_, err = svc.UpdateSite(ctx, owner, site.ID, SiteUpdate{CustomDomain: &domain})
	requireInvalid(t, err, "custom_domain")

	_, err = svc.UpdateSite(ctx, owner, 9999, SiteUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []int64{site.ID, site.ID}, inv.ids)
}

func TestDeleteSite(t *testing.T) {
	svc, db, inv := newTestSiteService(t)
	ctx := context.Background()

	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)
	admin := principalFor(t, db, "admin@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, db, owner.UserID, "doomed")
	testutil.AddMember(t, db, site.ID, admin.UserID, model.SiteRoleAdmin)

	err := svc.DeleteSite(ctx, admin, site.ID)
	requireDenied(t, err, rbac.ReasonNotOwner)

	require.NoError(t, svc.DeleteSite(ctx, owner, site.ID))
	assert.Equal(t, []int64{site.ID}, inv.ids)

	_, err = svc.queries.GetSiteUser(ctx, site.ID, admin.UserID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	err = svc.DeleteSite(ctx, owner, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMembers(t *testing.T) {
	svc, db, _ := newTestSiteService(t)
	ctx := context.Background()

	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)
	site, err := svc.CreateSite(ctx, owner, SiteInput{Name: "Team", Subdomain: "team"})
	require.NoError(t, err)

	writer := principalFor(t, db, "writer@example.com", model.RoleAuthor)

	// The free plan allows a single user: the owner.
	_, err = svc.AddMember(ctx, owner, site.ID, MemberInput{UserID: writer.UserID, Role: model.SiteRoleWriter})
	assert.ErrorIs(t, err, ErrConflict)

	pro, _ := model.LookupPlan(model.PlanPro)
	require.NoError(t, svc.queries.UpdateSitePlan(ctx, site.ID, pro.Key, model.SubscriptionActive, pro.Features, svc.now()))

	member, err := svc.AddMember(ctx, owner, site.ID, MemberInput{UserID: writer.UserID, Role: model.SiteRoleWriter})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSitePermissions(model.SiteRoleWriter), member.Permissions)
	assert.Equal(t, owner.UserID, member.InvitedBy.Int64)

	_, err = svc.AddMember(ctx, owner, site.ID, MemberInput{UserID: writer.UserID, Role: model.SiteRoleWriter})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.AddMember(ctx, owner, site.ID, MemberInput{UserID: 9999, Role: model.SiteRoleWriter})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddMember(ctx, owner, site.ID, MemberInput{UserID: writer.UserID, Role: "owner"})
	requireInvalid(t, err, "role")

	other := principalFor(t, db, "other@example.com", model.RoleAuthor)
	_, err = svc.AddMember(ctx, writer, site.ID, MemberInput{UserID: other.UserID, Role: model.SiteRoleWriter})
	requireDenied(t, err, rbac.ReasonMissingPermission)

	sites, err := svc.ListUserSites(ctx, writer)
	require.NoError(t, err)
	assert.Empty(t, sites.Owned)
	require.Len(t, sites.Member, 1)
	assert.Equal(t, site.ID, sites.Member[0].ID)

	err = svc.RemoveMember(ctx, owner, site.ID, owner.UserID)
	requireInvalid(t, err, "user_id")

	require.NoError(t, svc.RemoveMember(ctx, owner, site.ID, writer.UserID))
	err = svc.RemoveMember(ctx, owner, site.ID, writer.UserID)
	assert.ErrorIs(t, err, ErrNotFound)

	sites, err = svc.ListUserSites(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, sites.Owned, 1)
}

func TestSuperAdminBypassesSiteChecks(t *testing.T) {
	svc, db, _ := newTestSiteService(t)
	ctx := context.Background()

	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)
	site := testutil.CreateSite(t, db, owner.UserID, "guarded")

	root := principalFor(t, db, "root@example.com", model.RoleVisitor)
	root.PlatformRole = model.PlatformRoleSuperAdmin

	_, err := svc.GetSite(ctx, root, site.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSite(ctx, root, site.ID))
}
