// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const siteColumns = `id, name, subdomain, custom_domain, owner_id, type, template, theme, settings,
	plan, plan_status, features, total_posts, total_views, last_activity, is_active, is_initialized,
	created_at, updated_at`

func scanSite(s scanner) (model.Site, error) {
	var site model.Site
	var theme, settings, features string
	err := s.Scan(&site.ID, &site.Name, &site.Subdomain, &site.CustomDomain, &site.OwnerID, &site.Type,
		&site.Template, &theme, &settings, &site.Plan, &site.PlanStatus, &features, &site.TotalPosts,
		&site.TotalViews, &site.LastActivity, &site.IsActive, &site.IsInitialized, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return model.Site{}, err
	}
	decodeJSON(theme, &site.Theme)
	decodeJSON(settings, &site.Settings)
	decodeJSON(features, &site.Features)
	return site, nil
}

func collectSites(rows interface {
	scanner
	Next() bool
	Err() error
	Close() error
}) ([]model.Site, error) {
	defer func() { _ = rows.Close() }()
	var sites []model.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// CreateSite inserts a site and returns it.
func (q *Queries) CreateSite(ctx context.Context, s model.Site) (model.Site, error) {
	now := s.CreatedAt.UTC()
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO sites (name, subdomain, custom_domain, owner_id, type, template, theme, settings,
			plan, plan_status, features, is_active, is_initialized, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+siteColumns,
		s.Name, s.Subdomain, s.CustomDomain, s.OwnerID, s.Type, s.Template, encodeJSON(s.Theme),
		encodeJSON(s.Settings), s.Plan, s.PlanStatus, encodeJSON(s.Features), s.IsActive, s.IsInitialized,
		now, now, now)
	return scanSite(row)
}

// GetSiteByID returns a site by id.
func (q *Queries) GetSiteByID(ctx context.Context, id int64) (model.Site, error) {
	return scanSite(q.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id))
}

// GetActiveSiteBySubdomain returns an active site by subdomain.
func (q *Queries) GetActiveSiteBySubdomain(ctx context.Context, subdomain string) (model.Site, error) {
	return scanSite(q.db.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE subdomain = ? AND is_active = 1`, subdomain))
}

// GetActiveSiteByCustomDomain returns an active site by its custom domain.
func (q *Queries) GetActiveSiteByCustomDomain(ctx context.Context, domain string) (model.Site, error) {
	return scanSite(q.db.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE custom_domain = ? AND is_active = 1`, domain))
}

// SubdomainTaken reports whether any site uses subdomain.
func (q *Queries) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites WHERE subdomain = ?`, subdomain).Scan(&n)
	return n > 0, err
}

// ListSitesForUser returns sites the user owns or belongs to.
func (q *Queries) ListSitesForUser(ctx context.Context, userID int64) ([]model.Site, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+siteColumns+` FROM sites
		WHERE owner_id = ? OR id IN (SELECT site_id FROM site_users WHERE user_id = ? AND status = 'active')
		ORDER BY created_at DESC, id DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectSites(rows)
}

// UpdateSiteParams holds the editable attributes of a site.
type UpdateSiteParams struct {
	ID           int64
	Name         string
	Type         string
	Template     string
	Theme        model.SiteTheme
	Settings     model.SiteSettings
	CustomDomain string
	IsActive     bool
	UpdatedAt    time.Time
}

// UpdateSite overwrites the editable attributes of a site.
func (q *Queries) UpdateSite(ctx context.Context, arg UpdateSiteParams) (model.Site, error) {
	var domain any
	if arg.CustomDomain != "" {
		domain = arg.CustomDomain
	}
	return scanSite(q.db.QueryRowContext(ctx, `
		UPDATE sites SET name = ?, type = ?, template = ?, theme = ?, settings = ?, custom_domain = ?,
			is_active = ?, updated_at = ?, last_activity = ?
		WHERE id = ?
		RETURNING `+siteColumns,
		arg.Name, arg.Type, arg.Template, encodeJSON(arg.Theme), encodeJSON(arg.Settings), domain,
		arg.IsActive, arg.UpdatedAt.UTC(), arg.UpdatedAt.UTC(), arg.ID))
}

// UpdateSitePlan records the plan a site is on and its unlocked features.
func (q *Queries) UpdateSitePlan(ctx context.Context, id int64, plan, status string, features model.PlanFeatures, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE sites SET plan = ?, plan_status = ?, features = ?, updated_at = ? WHERE id = ?`,
		plan, status, encodeJSON(features), now.UTC(), id)
	return expectRow(res, err)
}

// MarkSiteInitialized flags default content as seeded.
func (q *Queries) MarkSiteInitialized(ctx context.Context, id int64, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE sites SET is_initialized = 1, updated_at = ? WHERE id = ?`, now.UTC(), id)
	return expectRow(res, err)
}

// AdjustSitePostCount changes total_posts by delta and bumps last_activity.
func (q *Queries) AdjustSitePostCount(ctx context.Context, id int64, delta int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE sites SET total_posts = MAX(total_posts + ?, 0), last_activity = ? WHERE id = ?`,
		delta, now.UTC(), id)
	return err
}

// IncrementSiteViews adds one view to the site totals.
func (q *Queries) IncrementSiteViews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE sites SET total_views = total_views + 1 WHERE id = ?`, id)
	return err
}

// DeleteSite removes a site. Memberships, the subscription and posts go
// with it through foreign keys.
func (q *Queries) DeleteSite(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	return expectRow(res, err)
}
