// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const commentSelect = `SELECT c.id, c.site_id, c.post_id, c.user_id, u.name, c.content, c.status,
	c.created_at, c.updated_at
	FROM comments c JOIN users u ON u.id = c.user_id`

func scanComment(s scanner) (model.Comment, error) {
	var c model.Comment
	err := s.Scan(&c.ID, &c.SiteID, &c.PostID, &c.UserID, &c.AuthorName, &c.Content, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCommentParams holds the fields of a new comment.
type CreateCommentParams struct {
	SiteID    int64
	PostID    int64
	UserID    int64
	Content   string
	Status    string
	CreatedAt time.Time
}

// CreateComment inserts a comment and returns it with its author name.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (model.Comment, error) {
	now := arg.CreatedAt.UTC()
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (site_id, post_id, user_id, content, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		arg.SiteID, arg.PostID, arg.UserID, arg.Content, arg.Status, now, now).Scan(&id)
	if err != nil {
		return model.Comment{}, err
	}
	return q.GetComment(ctx, id)
}

// GetComment returns a comment by id.
func (q *Queries) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	return scanComment(q.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
}

// ListCommentsParams filters a comment listing. Zero values match everything.
type ListCommentsParams struct {
	SiteID int64
	PostID int64
	Status string
	Limit  int
	Offset int
}

// ListComments returns comments of a site, newest first.
func (q *Queries) ListComments(ctx context.Context, arg ListCommentsParams) ([]model.Comment, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, commentSelect+`
		WHERE c.site_id = ?
			AND (? = 0 OR c.post_id = ?)
			AND (? = '' OR c.status = ?)
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?`,
		arg.SiteID, arg.PostID, arg.PostID, arg.Status, arg.Status, limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SetCommentStatus moves a comment to a moderation state.
func (q *Queries) SetCommentStatus(ctx context.Context, id int64, status string, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE comments SET status = ?, updated_at = ? WHERE id = ?`, status, now.UTC(), id)
	return expectRow(res, err)
}

// DeleteComment removes a comment.
func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	return expectRow(res, err)
}
