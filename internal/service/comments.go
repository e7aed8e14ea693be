// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// CommentService handles reader comments and their moderation queue.
type CommentService struct {
	queries *store.Queries
	eval    *rbac.Evaluator
	events  *EventService
	logger  *slog.Logger
	deny    denier
	plain   *bluemonday.Policy
	now     func() time.Time
}

// NewCommentService creates a CommentService.
func NewCommentService(db *sql.DB, eval *rbac.Evaluator, events *EventService, logger *slog.Logger) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{
		queries: store.New(db),
		eval:    eval,
		events:  events,
		logger:  logger,
		deny:    denier{logger: logger, events: events},
		plain:   bluemonday.StrictPolicy(),
		now:     time.Now,
	}
}

// ListCommentsFilter narrows the moderation queue.
type ListCommentsFilter struct {
	PostID int64
	Status string
	Limit  int
	Offset int
}

// CreateComment adds a pending comment to a published post of the scoped
// site.
func (s *CommentService) CreateComment(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, postID int64, content string) (*model.Comment, error) {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeComment(p, scope, rbac.CommentCreate, nil), "create comment", "post_id", postID); err != nil {
		return nil, err
	}

	post, err := s.queries.GetPostByID(ctx, postID)
	if err != nil || post.SiteID != scope.SiteID {
		return nil, notFound(orNoRows(err), "post")
	}
	if !post.IsPublished() {
		return nil, invalid("post_id", "comments are only accepted on published posts")
	}

	text := strings.TrimSpace(html.UnescapeString(s.plain.Sanitize(content)))
	switch {
	case text == "":
		return nil, invalid("content", "content is required")
	case utf8.RuneCountInString(text) > model.MaxCommentLength:
		return nil, invalid("content", fmt.Sprintf("content must be at most %d characters", model.MaxCommentLength))
	}

	comment, err := s.queries.CreateComment(ctx, store.CreateCommentParams{
		SiteID:    scope.SiteID,
		PostID:    post.ID,
		UserID:    p.UserID,
		Content:   text,
		Status:    model.CommentPending,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	s.logger.Info("comment created", "comment_id", comment.ID, "post_id", post.ID, "site_id", scope.SiteID, "user_id", p.UserID)
	return &comment, nil
}

// ListPostComments returns the approved comments of a published post
// looked up by slug.
func (s *CommentService) ListPostComments(ctx context.Context, siteID int64, slug string, limit, offset int) ([]model.Comment, error) {
	post, err := s.queries.GetPostBySlug(ctx, siteID, slug)
	if err != nil || !post.IsPublished() {
		return nil, notFound(orNoRows(err), "post")
	}
	comments, err := s.queries.ListComments(ctx, store.ListCommentsParams{
		SiteID: siteID,
		PostID: post.ID,
		Status: model.CommentApproved,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}

// ListComments returns the moderation queue of the scoped site.
func (s *CommentService) ListComments(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, f ListCommentsFilter) ([]model.Comment, error) {
	if err := s.deny.check(ctx, p, s.eval.AuthorizeComment(p, scope, rbac.CommentModerate, nil), "list comments"); err != nil {
		return nil, err
	}
	if f.Status != "" && !model.IsValidCommentStatus(f.Status) {
		return nil, invalid("status", "unknown status")
	}
	comments, err := s.queries.ListComments(ctx, store.ListCommentsParams{
		SiteID: scope.SiteID,
		PostID: f.PostID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}

// ModerateComment moves a comment to status.
func (s *CommentService) ModerateComment(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64, status string) (*model.Comment, error) {
	if !model.IsValidCommentStatus(status) {
		return nil, invalid("status", "unknown status")
	}
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizeComment(p, scope, rbac.CommentModerate, comment), "moderate comment", "comment_id", id); err != nil {
		return nil, err
	}
	if comment.Status == status {
		return comment, nil
	}

	if err := s.queries.SetCommentStatus(ctx, id, status, s.now()); err != nil {
		return nil, notFound(err, "comment")
	}
	s.logger.Info("comment moderated", "comment_id", id, "from", comment.Status, "to", status, "user_id", p.UserID)
	s.audit(ctx, p, "comment "+status, comment)
	return s.load(ctx, id)
}

// DeleteComment removes a comment.
func (s *CommentService) DeleteComment(ctx context.Context, p *rbac.Principal, scope *rbac.SiteScope, id int64) error {
	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deny.check(ctx, p, s.eval.AuthorizeComment(p, scope, rbac.CommentDelete, comment), "delete comment", "comment_id", id); err != nil {
		return err
	}
	if err := s.queries.DeleteComment(ctx, id); err != nil {
		return notFound(err, "comment")
	}
	s.logger.Info("comment deleted", "comment_id", id, "site_id", comment.SiteID, "user_id", p.UserID)
	return nil
}

func (s *CommentService) load(ctx context.Context, id int64) (*model.Comment, error) {
	comment, err := s.queries.GetComment(ctx, id)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	return &comment, nil
}

func (s *CommentService) audit(ctx context.Context, p *rbac.Principal, message string, c *model.Comment) {
	if s.events == nil {
		return
	}
	uid := p.UserID
	_ = s.events.LogPostEvent(ctx, model.EventLevelInfo, message, &uid, map[string]any{
		"comment_id": c.ID,
		"post_id":    c.PostID,
		"site_id":    c.SiteID,
	})
}

// orNoRows treats a row from another site like a missing one.
func orNoRows(err error) error {
	if err == nil {
		return sql.ErrNoRows
	}
	return err
}
