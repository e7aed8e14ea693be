// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Plans
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Subscription statuses
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
	SubscriptionPastDue   = "past_due"
	SubscriptionTrialing  = "trialing"
)

// Billing intervals
const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
)

// PlanFeatures are the feature flags and quotas a plan unlocks.
type PlanFeatures struct {
	CustomDomain bool `json:"custom_domain"`
	AICredits    int  `json:"ai_credits"`
	MaxUsers     int  `json:"max_users"`
	MaxStorageMB int  `json:"max_storage_mb"`
	Analytics    bool `json:"analytics"`
	Backups      bool `json:"backups"`
}

// Plan is an entry of the pricing catalog.
type Plan struct {
	Key        string       `json:"key"`
	Name       string       `json:"name"`
	PriceCents int64        `json:"price_cents"`
	Features   PlanFeatures `json:"features"`
}

// Plans is the pricing catalog, ordered from cheapest.
var Plans = []Plan{
	{
		Key: PlanFree, Name: "Free", PriceCents: 0,
		Features: PlanFeatures{AICredits: 10, MaxUsers: 1, MaxStorageMB: 100},
	},
	{
		Key: PlanPro, Name: "Pro", PriceCents: 999,
		Features: PlanFeatures{CustomDomain: true, AICredits: 100, MaxUsers: 5, MaxStorageMB: 1000, Analytics: true, Backups: true},
	},
	{
		Key: PlanBusiness, Name: "Business", PriceCents: 2999,
		Features: PlanFeatures{CustomDomain: true, AICredits: 500, MaxUsers: 20, MaxStorageMB: 5000, Analytics: true, Backups: true},
	},
}

// LookupPlan returns the catalog entry for key.
func LookupPlan(key string) (Plan, bool) {
	for _, p := range Plans {
		if p.Key == key {
			return p, true
		}
	}
	return Plan{}, false
}

// PlanAmount returns the billed amount for a plan and interval.
// Yearly billing charges ten months.
func PlanAmount(p Plan, interval string) int64 {
	if interval == BillingYearly {
		return p.PriceCents * 10
	}
	return p.PriceCents
}

// BillingPeriod returns the length of one billing cycle.
func BillingPeriod(interval string) time.Duration {
	if interval == BillingYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// Subscription is the billing record of a site.
type Subscription struct {
	ID              int64        `json:"id"`
	SiteID          int64        `json:"site_id"`
	Plan            string       `json:"plan"`
	Status          string       `json:"status"`
	BillingInterval string       `json:"billing_interval"`
	AmountCents     int64        `json:"amount_cents"`
	Currency        string       `json:"currency"`
	NextBillingAt   sql.NullTime `json:"next_billing_at,omitempty"`
	LastBillingAt   sql.NullTime `json:"last_billing_at,omitempty"`
	TrialEndsAt     sql.NullTime `json:"trial_ends_at,omitempty"`
	CancelledAt     sql.NullTime `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
