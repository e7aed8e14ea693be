// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const postColumns = `id, site_id, author_id, title, slug, content, excerpt, status, scheduled_at,
	published_at, language, source_id, categories, tags, views, created_at, updated_at`

func scanPost(s scanner) (model.Post, error) {
	var p model.Post
	var categories, tags string
	err := s.Scan(&p.ID, &p.SiteID, &p.AuthorID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.Status,
		&p.ScheduledAt, &p.PublishedAt, &p.Language, &p.SourceID, &categories, &tags, &p.Views,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Post{}, err
	}
	p.Categories = []int64{}
	p.Tags = []string{}
	decodeJSON(categories, &p.Categories)
	decodeJSON(tags, &p.Tags)
	return p, nil
}

func collectPosts(rows *sql.Rows) ([]model.Post, error) {
	defer func() { _ = rows.Close() }()
	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreatePostParams holds the fields of a new post.
type CreatePostParams struct {
	SiteID      int64
	AuthorID    int64
	Title       string
	Slug        string
	Content     string
	Excerpt     string
	Status      string
	ScheduledAt sql.NullTime
	Language    string
	SourceID    sql.NullInt64
	Categories  []int64
	Tags        []string
	CreatedAt   time.Time
}

// CreatePost inserts a post. A taken (site_id, slug) pair fails with a
// unique violation. published_at is set when the post is created published.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.Post, error) {
	now := arg.CreatedAt.UTC()
	var publishedAt sql.NullTime
	if arg.Status == model.PostStatusPublished {
		publishedAt = sql.NullTime{Time: now, Valid: true}
	}
	categories := arg.Categories
	if categories == nil {
		categories = []int64{}
	}
	tags := arg.Tags
	if tags == nil {
		tags = []string{}
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (site_id, author_id, title, slug, content, excerpt, status, scheduled_at,
			published_at, language, source_id, categories, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.SiteID, arg.AuthorID, arg.Title, arg.Slug, arg.Content, arg.Excerpt, arg.Status,
		utcNull(arg.ScheduledAt), publishedAt, arg.Language, arg.SourceID, encodeJSON(categories),
		encodeJSON(tags), now, now)
	return scanPost(row)
}

// GetPostByID returns a post by id.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
}

// GetPostBySlug returns a post by its slug within a site.
func (q *Queries) GetPostBySlug(ctx context.Context, siteID int64, slug string) (model.Post, error) {
	return scanPost(q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE site_id = ? AND slug = ?`, siteID, slug))
}

// ListPostsParams filters a post listing. An empty Status lists every state.
type ListPostsParams struct {
	SiteID   int64
	Status   string
	AuthorID int64
	Limit    int
	Offset   int
}

// ListPosts returns posts of a site, newest first.
func (q *Queries) ListPosts(ctx context.Context, arg ListPostsParams) ([]model.Post, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE site_id = ?
			AND (? = '' OR status = ?)
			AND (? = 0 OR author_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		arg.SiteID, arg.Status, arg.Status, arg.AuthorID, arg.AuthorID, limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// UpdatePostMetaParams holds the non-content fields of a post update.
type UpdatePostMetaParams struct {
	ID         int64
	Title      string
	Slug       string
	Excerpt    string
	Language   string
	Categories []int64
	Tags       []string
	UpdatedAt  time.Time
}

// UpdatePostMeta overwrites title, slug, excerpt, language and taxonomy.
func (q *Queries) UpdatePostMeta(ctx context.Context, arg UpdatePostMetaParams) error {
	if arg.Categories == nil {
		arg.Categories = []int64{}
	}
	if arg.Tags == nil {
		arg.Tags = []string{}
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, slug = ?, excerpt = ?, language = ?, categories = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Slug, arg.Excerpt, arg.Language, encodeJSON(arg.Categories), encodeJSON(arg.Tags),
		arg.UpdatedAt.UTC(), arg.ID)
	return expectRow(res, err)
}

// SetPostContent replaces the live content of a post.
func (q *Queries) SetPostContent(ctx context.Context, id int64, content string, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE posts SET content = ?, updated_at = ? WHERE id = ?`, content, now.UTC(), id)
	return expectRow(res, err)
}

// SetPostStatus moves a post to status. Entering published sets
// published_at only when it is still unset.
func (q *Queries) SetPostStatus(ctx context.Context, id int64, status string, scheduledAt sql.NullTime, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE posts SET
			status = ?,
			scheduled_at = ?,
			published_at = CASE WHEN ? = 'published' THEN COALESCE(published_at, ?) ELSE published_at END,
			updated_at = ?
		WHERE id = ?`,
		status, utcNull(scheduledAt), status, now.UTC(), now.UTC(), id)
	return expectRow(res, err)
}

// ListDueScheduledPosts returns scheduled posts whose time has come.
func (q *Queries) ListDueScheduledPosts(ctx context.Context, now time.Time) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = 'scheduled' AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at, id`, now.UTC())
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// PublishScheduledPost promotes a post only if it is still scheduled and
// clears its schedule. It reports whether this call performed the transition.
func (q *Queries) PublishScheduledPost(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE posts SET status = 'published', scheduled_at = NULL,
			published_at = COALESCE(published_at, ?), updated_at = ?
		WHERE id = ? AND status = 'scheduled'`, now.UTC(), now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeletePost removes a post with its versions, translations links and view history.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return expectRow(res, err)
}

// CountPostsBySite returns the number of posts in a site.
func (q *Queries) CountPostsBySite(ctx context.Context, siteID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE site_id = ?`, siteID).Scan(&n)
	return n, err
}
