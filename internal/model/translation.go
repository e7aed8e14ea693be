// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Translation links a source post to its copy in another language.
// For example, Post 1 (English) translated to Spanish as Post 7 is:
// Translation { SourceID: 1, Language: "es", PostID: 7 }
type Translation struct {
	SourceID  int64     `json:"source_id"`
	Language  string    `json:"language"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
