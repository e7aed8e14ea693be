// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Taxonomy limits
const (
	MaxCategoryNameLength        = 50
	MaxCategoryDescriptionLength = 500
	MaxTagNameLength             = 30
)

// Category groups posts of one site. Posts reference categories by id.
type Category struct {
	ID          int64     `json:"id"`
	SiteID      int64     `json:"site_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag is a free-form label of one site. Posts reference tags by name and
// unknown names are registered when a post uses them.
type Tag struct {
	ID        int64     `json:"id"`
	SiteID    int64     `json:"site_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
