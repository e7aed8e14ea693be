// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const dayLayout = "2006-01-02"

// RecordView counts one view of a post for the UTC day of now and drops
// day buckets older than keepDays.
func (q *Queries) RecordView(ctx context.Context, postID int64, now time.Time, keepDays int) error {
	now = now.UTC()
	if _, err := q.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = ?`, postID); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO post_view_days (post_id, day, count) VALUES (?, ?, 1)
		ON CONFLICT(post_id, day) DO UPDATE SET count = count + 1`,
		postID, now.Format(dayLayout)); err != nil {
		return err
	}
	cutoff := now.AddDate(0, 0, -keepDays).Format(dayLayout)
	_, err := q.db.ExecContext(ctx, `DELETE FROM post_view_days WHERE post_id = ? AND day <= ?`, postID, cutoff)
	return err
}

// ListViewDays returns a post's daily view history, oldest first.
func (q *Queries) ListViewDays(ctx context.Context, postID int64) ([]model.ViewDay, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT day, count FROM post_view_days WHERE post_id = ? ORDER BY day`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []model.ViewDay{}
	for rows.Next() {
		var d model.ViewDay
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
