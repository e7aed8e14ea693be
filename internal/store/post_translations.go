// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

// CreateTranslation links a source post to its translation. A second link
// for the same language fails with a unique violation.
func (q *Queries) CreateTranslation(ctx context.Context, sourceID int64, language string, postID int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO post_translations (source_post_id, language, post_id, created_at) VALUES (?, ?, ?, ?)`,
		sourceID, language, postID, now.UTC())
	return err
}

// ListTranslations returns the translations of a source post by language.
func (q *Queries) ListTranslations(ctx context.Context, sourceID int64) ([]model.Translation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT source_post_id, language, post_id, created_at FROM post_translations
		WHERE source_post_id = ? ORDER BY language`, sourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.Translation{}
	for rows.Next() {
		var t model.Translation
		if err := rows.Scan(&t.SourceID, &t.Language, &t.PostID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
