// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const roleColumns = `name, display_name, description, scope, level, permissions, is_active, created_at`

func scanRole(s scanner) (model.Role, error) {
	var r model.Role
	var perms string
	err := s.Scan(&r.Name, &r.DisplayName, &r.Description, &r.Scope, &r.Level, &perms, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return model.Role{}, err
	}
	r.Permissions = []model.Permission{}
	decodeJSON(perms, &r.Permissions)
	return r, nil
}

// GetRole returns a role by name.
func (q *Queries) GetRole(ctx context.Context, name string) (model.Role, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

// ListRoles returns all roles ordered by scope and level.
func (q *Queries) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY scope, level, name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var roles []model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// UpsertRole inserts a role or overwrites every attribute of an existing one.
func (q *Queries) UpsertRole(ctx context.Context, r model.Role, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO roles (name, display_name, description, scope, level, permissions, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			description = excluded.description,
			scope = excluded.scope,
			level = excluded.level,
			permissions = excluded.permissions,
			is_active = 1`,
		r.Name, r.DisplayName, r.Description, r.Scope, r.Level, encodeJSON(r.Permissions), now.UTC())
	return err
}

// DeleteRolesNotIn removes every role whose name is not in keep.
// Users referencing a removed role are left with a NULL role_name.
func (q *Queries) DeleteRolesNotIn(ctx context.Context, keep []string) (int64, error) {
	if len(keep) == 0 {
		res, err := q.db.ExecContext(ctx, `DELETE FROM roles`)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, len(keep))
	for i, name := range keep {
		args[i] = name
	}

	res, err := q.db.ExecContext(ctx, `DELETE FROM roles WHERE name NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReseedRoles makes the roles table equal to catalog in one transaction.
func ReseedRoles(ctx context.Context, db *sql.DB, catalog []model.Role) error {
	now := time.Now()
	return RunInTx(ctx, db, func(q *Queries) error {
		names := make([]string, 0, len(catalog))
		for _, r := range catalog {
			if err := q.UpsertRole(ctx, r, now); err != nil {
				return fmt.Errorf("upserting role %s: %w", r.Name, err)
			}
			names = append(names, r.Name)
		}
		if _, err := q.DeleteRolesNotIn(ctx, names); err != nil {
			return fmt.Errorf("removing stale roles: %w", err)
		}
		return nil
	})
}
