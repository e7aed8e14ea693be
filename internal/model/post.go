// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"slices"
	"time"
)

// Post statuses
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusScheduled = "scheduled"
	PostStatusArchived  = "archived"
)

// PostStatuses lists every lifecycle state.
var PostStatuses = []string{PostStatusDraft, PostStatusPublished, PostStatusScheduled, PostStatusArchived}

// IsValidPostStatus reports whether s is a lifecycle state.
func IsValidPostStatus(s string) bool {
	return slices.Contains(PostStatuses, s)
}

// Post limits
const (
	MaxPostVersions    = 10
	MaxViewHistoryDays = 30
	MaxTitleLength     = 200
	MaxExcerptLength   = 500
	DefaultLanguage    = "en"
)

// Post is the versioned content entity of a site.
type Post struct {
	ID          int64         `json:"id"`
	SiteID      int64         `json:"site_id"`
	AuthorID    int64         `json:"author_id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Content     string        `json:"content"`
	Excerpt     string        `json:"excerpt"`
	Status      string        `json:"status"`
	ScheduledAt sql.NullTime  `json:"scheduled_at,omitempty"`
	PublishedAt sql.NullTime  `json:"published_at,omitempty"`
	Language    string        `json:"language"`
	SourceID    sql.NullInt64 `json:"source_id,omitempty"`
	Categories  []int64       `json:"categories"`
	Tags        []string      `json:"tags"`
	Views       int64         `json:"views"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Translations []Translation `json:"translations,omitempty"`
	Versions     []PostVersion `json:"versions,omitempty"`
}

// IsPublished returns true if the post is published.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// IsDraft returns true if the post is a draft.
func (p *Post) IsDraft() bool {
	return p.Status == PostStatusDraft
}

// IsArchived returns true if the post is archived.
func (p *Post) IsArchived() bool {
	return p.Status == PostStatusArchived
}

// DueForPublishing reports whether a scheduled post should be promoted at now.
func (p *Post) DueForPublishing(now time.Time) bool {
	return p.Status == PostStatusScheduled && p.ScheduledAt.Valid && !p.ScheduledAt.Time.After(now)
}

// OwnerOf implements the ownership lookup used by the authorization evaluator.
func (p *Post) OwnerOf(field string) (int64, bool) {
	if field == "author" {
		return p.AuthorID, true
	}
	return 0, false
}

// PostVersion is a content snapshot in a post's version ledger.
type PostVersion struct {
	ID        int64         `json:"id"`
	PostID    int64         `json:"post_id"`
	Content   string        `json:"content"`
	CreatedBy sql.NullInt64 `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ViewDay is one bucket of a post's daily view history.
type ViewDay struct {
	Day   string `json:"day"` // YYYY-MM-DD (UTC)
	Count int64  `json:"count"`
}
