// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/testutil"
)

func TestSubscriptionLifecycle(t *testing.T) {
	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()
	events := NewEventService(db, logger)
	inv := &invalidations{}

	eval := rbac.NewEvaluator(rbac.MustDefaultRegistry())
	sites := NewSiteService(db, eval, inv, events, logger)
	t.Cleanup(sites.WaitInitialized)
	subs := NewSubscriptionService(db, eval, inv, events, logger)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	subs.now = func() time.Time { return now }

	ctx := context.Background()
	owner := principalFor(t, db, "owner@example.com", model.RoleAuthor)
	member := principalFor(t, db, "member@example.com", model.RoleAuthor)

	site, err := sites.CreateSite(ctx, owner, SiteInput{Name: "Paid", Subdomain: "paid"})
	require.NoError(t, err)

	sub, err := subs.GetSubscription(ctx, owner, site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, sub.Plan)

	_, err = subs.Upgrade(ctx, owner, site.ID, "platinum", "")
	requireInvalid(t, err, "plan")
	_, err = subs.Upgrade(ctx, owner, site.ID, model.PlanPro, "weekly")
	requireInvalid(t, err, "interval")

	sub, err = subs.Upgrade(ctx, owner, site.ID, model.PlanPro, model.BillingYearly)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, sub.Plan)
	assert.Equal(t, int64(9990), sub.AmountCents)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.True(t, sub.NextBillingAt.Time.Equal(now.Add(365*24*time.Hour)))

	upgraded, err := sites.queries.GetSiteByID(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, upgraded.Plan)
	assert.True(t, upgraded.Features.CustomDomain)
	assert.Equal(t, 5, upgraded.Features.MaxUsers)

	// Pro allows more members.
	_, err = sites.AddMember(ctx, owner, site.ID, MemberInput{UserID: member.UserID, Role: model.SiteRoleAdmin})
	require.NoError(t, err)

	usage, err := subs.GetUsage(ctx, owner, site.ID)
	require.NoError(t, err)
	assert.Equal(t, UsageMeter{Used: 2, Limit: 5, Percentage: 40}, usage.Users)

	// Site admins manage the site but not its billing.
	_, err = subs.GetSubscription(ctx, member, site.ID)
	requireDenied(t, err, rbac.ReasonNotOwner)
	_, err = subs.Cancel(ctx, member, site.ID)
	requireDenied(t, err, rbac.ReasonNotOwner)

	// Platform admins pass the ownership check, but only from inside the site.
	admin := principalFor(t, db, "admin@example.com", model.RoleAdmin)
	_, err = subs.GetSubscription(ctx, admin, site.ID)
	requireDenied(t, err, rbac.ReasonNoSiteAccess)
	testutil.AddMember(t, db, site.ID, admin.UserID, model.SiteRoleSubscriber)
	_, err = subs.GetSubscription(ctx, admin, site.ID)
	require.NoError(t, err)

	sub, err = subs.Cancel(ctx, owner, site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, sub.Status)
	assert.True(t, sub.CancelledAt.Valid)
	assert.False(t, sub.NextBillingAt.Valid)

	downgraded, err := sites.queries.GetSiteByID(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, downgraded.Plan)
	assert.Equal(t, model.SubscriptionCancelled, downgraded.PlanStatus)
	assert.False(t, downgraded.Features.CustomDomain)

	assert.Len(t, inv.ids, 2)

	_, err = subs.GetSubscription(ctx, owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlans(t *testing.T) {
	subs := NewSubscriptionService(nil, nil, nil, nil, testutil.TestLoggerSilent())
	plans := subs.Plans()
	require.Len(t, plans, 3)

	pro, ok := model.LookupPlan(model.PlanPro)
	require.True(t, ok)
	assert.Equal(t, int64(999), model.PlanAmount(pro, model.BillingMonthly))
	assert.Equal(t, int64(9990), model.PlanAmount(pro, model.BillingYearly))
}
