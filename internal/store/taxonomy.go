// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const categoryColumns = `id, site_id, name, slug, description, created_at, updated_at`

func scanCategory(s scanner) (model.Category, error) {
	var c model.Category
	err := s.Scan(&c.ID, &c.SiteID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CategoryParams holds the writable fields of a category.
type CategoryParams struct {
	ID          int64
	SiteID      int64
	Name        string
	Slug        string
	Description string
	Now         time.Time
}

// CreateCategory inserts a category. A taken name or slug within the site
// fails with a unique violation.
func (q *Queries) CreateCategory(ctx context.Context, arg CategoryParams) (model.Category, error) {
	now := arg.Now.UTC()
	return scanCategory(q.db.QueryRowContext(ctx, `
		INSERT INTO categories (site_id, name, slug, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+categoryColumns,
		arg.SiteID, arg.Name, arg.Slug, arg.Description, now, now))
}

// UpdateCategory overwrites name, slug and description of a site's category.
func (q *Queries) UpdateCategory(ctx context.Context, arg CategoryParams) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, `
		UPDATE categories SET name = ?, slug = ?, description = ?, updated_at = ?
		WHERE id = ? AND site_id = ?
		RETURNING `+categoryColumns,
		arg.Name, arg.Slug, arg.Description, arg.Now.UTC(), arg.ID, arg.SiteID))
}

// GetCategory returns a category of a site.
func (q *Queries) GetCategory(ctx context.Context, siteID, id int64) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE site_id = ? AND id = ?`, siteID, id))
}

// ListCategories returns the categories of a site by name.
func (q *Queries) ListCategories(ctx context.Context, siteID int64) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE site_id = ? ORDER BY name`, siteID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountSiteCategories returns how many of ids are categories of the site.
func (q *Queries) CountSiteCategories(ctx context.Context, siteID int64, ids []int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE site_id = ? AND id IN (SELECT value FROM json_each(?))`,
		siteID, encodeJSON(ids)).Scan(&n)
	return n, err
}

// DeleteCategory removes a category and drops its id from the site's posts.
// Run it in a transaction.
func (q *Queries) DeleteCategory(ctx context.Context, siteID, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE posts SET categories = (
			SELECT json_group_array(value) FROM json_each(posts.categories) WHERE value != ?
		)
		WHERE site_id = ? AND EXISTS (SELECT 1 FROM json_each(posts.categories) WHERE value = ?)`,
		id, siteID, id)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE site_id = ? AND id = ?`, siteID, id)
	return expectRow(res, err)
}

const tagColumns = `id, site_id, name, slug, created_at`

func scanTag(s scanner) (model.Tag, error) {
	var t model.Tag
	err := s.Scan(&t.ID, &t.SiteID, &t.Name, &t.Slug, &t.CreatedAt)
	return t, err
}

// CreateTag inserts a tag. A taken name or slug fails with a unique violation.
func (q *Queries) CreateTag(ctx context.Context, siteID int64, name, slug string, now time.Time) (model.Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, `
		INSERT INTO tags (site_id, name, slug, created_at) VALUES (?, ?, ?, ?)
		RETURNING `+tagColumns, siteID, name, slug, now.UTC()))
}

// EnsureTag registers a tag unless the site already has one with the same
// name or slug.
func (q *Queries) EnsureTag(ctx context.Context, siteID int64, name, slug string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tags (site_id, name, slug, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`, siteID, name, slug, now.UTC())
	return err
}

// GetTag returns a tag of a site.
func (q *Queries) GetTag(ctx context.Context, siteID, id int64) (model.Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE site_id = ? AND id = ?`, siteID, id))
}

// ListTags returns the tags of a site by name.
func (q *Queries) ListTags(ctx context.Context, siteID int64) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE site_id = ? ORDER BY name`, siteID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag and drops its name from the site's posts.
// Run it in a transaction.
func (q *Queries) DeleteTag(ctx context.Context, siteID, id int64) error {
	tag, err := q.GetTag(ctx, siteID, id)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		UPDATE posts SET tags = (
			SELECT json_group_array(value) FROM json_each(posts.tags) WHERE value != ?
		)
		WHERE site_id = ? AND EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE value = ?)`,
		tag.Name, siteID, tag.Name)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	return expectRow(res, err)
}
