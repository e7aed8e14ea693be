// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const versionColumns = `id, post_id, content, created_by, created_at`

func scanVersion(s scanner) (model.PostVersion, error) {
	var v model.PostVersion
	err := s.Scan(&v.ID, &v.PostID, &v.Content, &v.CreatedBy, &v.CreatedAt)
	return v, err
}

// AppendVersion adds a snapshot to a post's ledger and evicts the oldest
// entries beyond max. Run it in the same transaction as the content write.
func (q *Queries) AppendVersion(ctx context.Context, postID int64, content string, editor sql.NullInt64, now time.Time, max int) (model.PostVersion, error) {
	v, err := scanVersion(q.db.QueryRowContext(ctx, `
		INSERT INTO post_versions (post_id, content, created_by, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+versionColumns, postID, content, editor, now.UTC()))
	if err != nil {
		return model.PostVersion{}, err
	}

	_, err = q.db.ExecContext(ctx, `
		DELETE FROM post_versions
		WHERE post_id = ? AND id NOT IN (
			SELECT id FROM post_versions WHERE post_id = ? ORDER BY id DESC LIMIT ?
		)`, postID, postID, max)
	if err != nil {
		return model.PostVersion{}, err
	}
	return v, nil
}

// ListVersions returns a post's ledger, oldest first.
func (q *Queries) ListVersions(ctx context.Context, postID int64) ([]model.PostVersion, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM post_versions WHERE post_id = ? ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := []model.PostVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetVersion returns one ledger entry of a post.
func (q *Queries) GetVersion(ctx context.Context, postID, versionID int64) (model.PostVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM post_versions WHERE post_id = ? AND id = ?`, postID, versionID))
}

// LatestVersion returns the newest ledger entry of a post.
func (q *Queries) LatestVersion(ctx context.Context, postID int64) (model.PostVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM post_versions WHERE post_id = ? ORDER BY id DESC LIMIT 1`, postID))
}
