// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"

	"github.com/olegiv/sitehub/internal/model"
)

const subscriptionColumns = `id, site_id, plan, status, billing_interval, amount_cents, currency,
	next_billing_at, last_billing_at, trial_ends_at, cancelled_at, created_at, updated_at`

func scanSubscription(s scanner) (model.Subscription, error) {
	var sub model.Subscription
	err := s.Scan(&sub.ID, &sub.SiteID, &sub.Plan, &sub.Status, &sub.BillingInterval, &sub.AmountCents,
		&sub.Currency, &sub.NextBillingAt, &sub.LastBillingAt, &sub.TrialEndsAt, &sub.CancelledAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// CreateSubscription inserts the subscription of a site.
func (q *Queries) CreateSubscription(ctx context.Context, s model.Subscription) (model.Subscription, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (site_id, plan, status, billing_interval, amount_cents, currency,
			next_billing_at, last_billing_at, trial_ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+subscriptionColumns,
		s.SiteID, s.Plan, s.Status, s.BillingInterval, s.AmountCents, s.Currency,
		utcNull(s.NextBillingAt), utcNull(s.LastBillingAt), utcNull(s.TrialEndsAt),
		s.CreatedAt.UTC(), s.CreatedAt.UTC())
	return scanSubscription(row)
}

// GetSubscriptionBySite returns the subscription of a site.
func (q *Queries) GetSubscriptionBySite(ctx context.Context, siteID int64) (model.Subscription, error) {
	return scanSubscription(q.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE site_id = ?`, siteID))
}

// UpdateSubscription overwrites the billing state of a subscription.
func (q *Queries) UpdateSubscription(ctx context.Context, s model.Subscription) (model.Subscription, error) {
	return scanSubscription(q.db.QueryRowContext(ctx, `
		UPDATE subscriptions SET plan = ?, status = ?, billing_interval = ?, amount_cents = ?,
			next_billing_at = ?, last_billing_at = ?, trial_ends_at = ?, cancelled_at = ?, updated_at = ?
		WHERE site_id = ?
		RETURNING `+subscriptionColumns,
		s.Plan, s.Status, s.BillingInterval, s.AmountCents, utcNull(s.NextBillingAt), utcNull(s.LastBillingAt),
		utcNull(s.TrialEndsAt), utcNull(s.CancelledAt), s.UpdatedAt.UTC(), s.SiteID))
}
