// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Comment statuses
const (
	CommentPending  = "pending"
	CommentApproved = "approved"
	CommentRejected = "rejected"
)

// CommentStatuses lists every moderation state.
var CommentStatuses = []string{CommentPending, CommentApproved, CommentRejected}

// IsValidCommentStatus reports whether s is a moderation state.
func IsValidCommentStatus(s string) bool {
	return slices.Contains(CommentStatuses, s)
}

// MaxCommentLength is the rune limit of a comment body.
const MaxCommentLength = 1000

// Comment is a reader comment on a post. New comments wait for moderation
// and only approved ones are shown publicly.
type Comment struct {
	ID         int64     `json:"id"`
	SiteID     int64     `json:"site_id"`
	PostID     int64     `json:"post_id"`
	UserID     int64     `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsApproved returns true if the comment is publicly visible.
func (c *Comment) IsApproved() bool {
	return c.Status == CommentApproved
}

// OwnerOf implements the ownership lookup used by the authorization evaluator.
func (c *Comment) OwnerOf(field string) (int64, bool) {
	if field == "author" {
		return c.UserID, true
	}
	return 0, false
}
