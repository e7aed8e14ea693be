// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// SubscriptionService manages the billing plan of a site. Payment
// processing is handled elsewhere; this only records plan state.
type SubscriptionService struct {
	db          *sql.DB
	queries     *store.Queries
	eval        *rbac.Evaluator
	invalidator SiteInvalidator
	logger      *slog.Logger
	deny        denier
	now         func() time.Time
}

// NewSubscriptionService creates a SubscriptionService. invalidator may be nil.
func NewSubscriptionService(db *sql.DB, eval *rbac.Evaluator, invalidator SiteInvalidator, events *EventService, logger *slog.Logger) *SubscriptionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionService{
		db:          db,
		queries:     store.New(db),
		eval:        eval,
		invalidator: invalidator,
		logger:      logger,
		deny:        denier{logger: logger, events: events},
		now:         time.Now,
	}
}

// Plans returns the pricing catalog.
func (s *SubscriptionService) Plans() []model.Plan {
	return model.Plans
}

// Usage reports quota consumption of a site against its plan.
type Usage struct {
	Plan  string             `json:"plan"`
	Users UsageMeter         `json:"users"`
	Posts int64              `json:"posts"`
	Views int64              `json:"views"`
	Quota model.PlanFeatures `json:"quota"`
}

// UsageMeter is one used/limit pair.
type UsageMeter struct {
	Used       int `json:"used"`
	Limit      int `json:"limit"`
	Percentage int `json:"percentage"`
}

// GetSubscription returns the subscription of a site to its owner.
func (s *SubscriptionService) GetSubscription(ctx context.Context, p *rbac.Principal, siteID int64) (*model.Subscription, error) {
	if _, err := s.ownedSite(ctx, p, siteID, "read subscription"); err != nil {
		return nil, err
	}
	sub, err := s.queries.GetSubscriptionBySite(ctx, siteID)
	if err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

// Upgrade moves a site to plan billed per interval and unlocks the plan's
// features on the site. Yearly billing charges ten months.
func (s *SubscriptionService) Upgrade(ctx context.Context, p *rbac.Principal, siteID int64, planKey, interval string) (*model.Subscription, error) {
	plan, ok := model.LookupPlan(planKey)
	if !ok {
		return nil, invalid("plan", "unknown plan")
	}
	if interval == "" {
		interval = model.BillingMonthly
	}
	if interval != model.BillingMonthly && interval != model.BillingYearly {
		return nil, invalid("interval", "interval must be monthly or yearly")
	}

	site, err := s.ownedSite(ctx, p, siteID, "upgrade subscription")
	if err != nil {
		return nil, err
	}

	now := s.now()
	var sub model.Subscription
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		current, err := q.GetSubscriptionBySite(ctx, siteID)
		if err != nil {
			return err
		}
		current.Plan = plan.Key
		current.Status = model.SubscriptionActive
		current.BillingInterval = interval
		current.AmountCents = model.PlanAmount(plan, interval)
		current.NextBillingAt = sql.NullTime{Time: now.Add(model.BillingPeriod(interval)), Valid: true}
		current.LastBillingAt = sql.NullTime{Time: now, Valid: true}
		current.CancelledAt = sql.NullTime{}
		current.UpdatedAt = now

		if sub, err = q.UpdateSubscription(ctx, current); err != nil {
			return err
		}
		return q.UpdateSitePlan(ctx, siteID, plan.Key, model.SubscriptionActive, plan.Features, now)
	})
	if err != nil {
		return nil, notFound(err, "subscription")
	}

	s.invalidate(ctx, site)
	s.logger.Info("subscription upgraded", "site_id", siteID, "plan", plan.Key, "interval", interval, "user_id", p.UserID)
	return &sub, nil
}

// Cancel marks the subscription cancelled and drops the site to the free plan.
func (s *SubscriptionService) Cancel(ctx context.Context, p *rbac.Principal, siteID int64) (*model.Subscription, error) {
	site, err := s.ownedSite(ctx, p, siteID, "cancel subscription")
	if err != nil {
		return nil, err
	}
	free, _ := model.LookupPlan(model.PlanFree)

	now := s.now()
	var sub model.Subscription
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		current, err := q.GetSubscriptionBySite(ctx, siteID)
		if err != nil {
			return err
		}
		current.Status = model.SubscriptionCancelled
		current.CancelledAt = sql.NullTime{Time: now, Valid: true}
		current.NextBillingAt = sql.NullTime{}
		current.UpdatedAt = now

		if sub, err = q.UpdateSubscription(ctx, current); err != nil {
			return err
		}
		return q.UpdateSitePlan(ctx, siteID, free.Key, model.SubscriptionCancelled, free.Features, now)
	})
	if err != nil {
		return nil, notFound(err, "subscription")
	}

	s.invalidate(ctx, site)
	s.logger.Info("subscription cancelled", "site_id", siteID, "user_id", p.UserID)
	return &sub, nil
}

// GetUsage reports how much of its plan a site uses.
func (s *SubscriptionService) GetUsage(ctx context.Context, p *rbac.Principal, siteID int64) (*Usage, error) {
	site, err := s.ownedSite(ctx, p, siteID, "read usage")
	if err != nil {
		return nil, err
	}
	members, err := s.queries.CountSiteUsers(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("counting members of site %d: %w", siteID, err)
	}

	return &Usage{
		Plan:  site.Plan,
		Users: meter(members, site.Features.MaxUsers),
		Posts: site.TotalPosts,
		Views: site.TotalViews,
		Quota: site.Features,
	}, nil
}

func meter(used, limit int) UsageMeter {
	m := UsageMeter{Used: used, Limit: limit}
	if limit > 0 {
		m.Percentage = used * 100 / limit
	}
	return m
}

func (s *SubscriptionService) ownedSite(ctx context.Context, p *rbac.Principal, siteID int64, action string) (*model.Site, error) {
	site, scope, err := loadScope(ctx, s.queries, p, siteID)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, ownerOnly(s.eval, p, site, scope), action, "site_id", siteID); err != nil {
		return nil, err
	}
	return site, nil
}

func (s *SubscriptionService) invalidate(ctx context.Context, site *model.Site) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, site.ID, site.Subdomain)
	}
}
