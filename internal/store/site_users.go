// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"

	"github.com/olegiv/sitehub/internal/model"
)

const siteUserColumns = `id, site_id, user_id, role, permissions, status, invited_by, joined_at`

func scanSiteUser(s scanner) (model.SiteUser, error) {
	var m model.SiteUser
	var perms string
	if err := s.Scan(&m.ID, &m.SiteID, &m.UserID, &m.Role, &perms, &m.Status, &m.InvitedBy, &m.JoinedAt); err != nil {
		return model.SiteUser{}, err
	}
	m.Permissions = []model.SitePermission{}
	decodeJSON(perms, &m.Permissions)
	return m, nil
}

// CreateSiteUser inserts a membership. A second membership for the same
// (site, user) fails with a unique violation.
func (q *Queries) CreateSiteUser(ctx context.Context, m model.SiteUser) (model.SiteUser, error) {
	perms := m.Permissions
	if perms == nil {
		perms = []model.SitePermission{}
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO site_users (site_id, user_id, role, permissions, status, invited_by, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+siteUserColumns,
		m.SiteID, m.UserID, m.Role, encodeJSON(perms), m.Status, m.InvitedBy, m.JoinedAt.UTC())
	return scanSiteUser(row)
}

// GetSiteUser returns the membership of user in site.
func (q *Queries) GetSiteUser(ctx context.Context, siteID, userID int64) (model.SiteUser, error) {
	return scanSiteUser(q.db.QueryRowContext(ctx,
		`SELECT `+siteUserColumns+` FROM site_users WHERE site_id = ? AND user_id = ?`, siteID, userID))
}

// ListSiteUsers returns the members of a site.
func (q *Queries) ListSiteUsers(ctx context.Context, siteID int64) ([]model.SiteUser, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+siteUserColumns+` FROM site_users WHERE site_id = ? ORDER BY joined_at, id`, siteID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.SiteUser
	for rows.Next() {
		m, err := scanSiteUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountSiteUsers returns the number of memberships of a site.
func (q *Queries) CountSiteUsers(ctx context.Context, siteID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM site_users WHERE site_id = ?`, siteID).Scan(&n)
	return n, err
}

// DeleteSiteUser removes a membership.
func (q *Queries) DeleteSiteUser(ctx context.Context, siteID, userID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM site_users WHERE site_id = ? AND user_id = ?`, siteID, userID)
	return expectRow(res, err)
}
