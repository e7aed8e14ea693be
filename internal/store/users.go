// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/sitehub/internal/model"
)

const userColumns = `id, email, name, password_hash, COALESCE(role_name, ''), legacy_role, platform_role,
	is_active, email_verified, verification_code, verification_expires_at, reset_token_hash,
	reset_expires_at, last_login_at, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.RoleName, &u.LegacyRole, &u.PlatformRole,
		&u.IsActive, &u.EmailVerified, &u.VerificationCode, &u.VerificationExpiresAt, &u.ResetTokenHash,
		&u.ResetExpiresAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams holds the fields of a new user.
type CreateUserParams struct {
	Email                 string
	Name                  string
	PasswordHash          string
	RoleName              string
	PlatformRole          string
	IsActive              bool
	EmailVerified         bool
	VerificationCode      string
	VerificationExpiresAt time.Time
	CreatedAt             time.Time
}

// CreateUser inserts a user. The legacy role string is written from the
// same value as the role reference.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	platform := arg.PlatformRole
	if platform == "" {
		platform = model.PlatformRoleUser
	}
	var roleName sql.NullString
	if arg.RoleName != "" {
		roleName = sql.NullString{String: arg.RoleName, Valid: true}
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash, role_name, legacy_role, platform_role, is_active,
			email_verified, verification_code, verification_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Email, arg.Name, arg.PasswordHash, roleName, arg.RoleName, platform, arg.IsActive,
		arg.EmailVerified, arg.VerificationCode, nullTime(arg.VerificationExpiresAt),
		arg.CreatedAt.UTC(), arg.CreatedAt.UTC())
	return scanUser(row)
}

// GetUserByID returns a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail returns a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByResetTokenHash returns the user holding an unexpired reset token.
func (q *Queries) GetUserByResetTokenHash(ctx context.Context, hash string, now time.Time) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token_hash = ? AND reset_token_hash != '' AND reset_expires_at > ?`,
		hash, now.UTC()))
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UpdateUserRole sets the role reference and the legacy string together.
func (q *Queries) UpdateUserRole(ctx context.Context, id int64, role string, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET role_name = ?, legacy_role = ?, updated_at = ? WHERE id = ?`,
		role, role, now.UTC(), id)
	return expectRow(res, err)
}

// SetPlatformRole sets the platform role flag of a user.
func (q *Queries) SetPlatformRole(ctx context.Context, id int64, platformRole string, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET platform_role = ?, updated_at = ? WHERE id = ?`, platformRole, now.UTC(), id)
	return expectRow(res, err)
}

// SetVerificationCode stores a new one-time verification code.
func (q *Queries) SetVerificationCode(ctx context.Context, id int64, code string, expiresAt, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET verification_code = ?, verification_expires_at = ?, updated_at = ?
		WHERE id = ?`, code, expiresAt.UTC(), now.UTC(), id)
	return expectRow(res, err)
}

// MarkEmailVerified flags the user as verified and clears the code.
func (q *Queries) MarkEmailVerified(ctx context.Context, id int64, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET email_verified = 1, verification_code = '', verification_expires_at = NULL, updated_at = ?
		WHERE id = ?`, now.UTC(), id)
	return expectRow(res, err)
}

// SetResetToken stores the hash of a password reset token.
func (q *Queries) SetResetToken(ctx context.Context, id int64, hash string, expiresAt, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		hash, expiresAt.UTC(), now.UTC(), id)
	return expectRow(res, err)
}

// UpdatePassword replaces the password hash and clears any reset token.
func (q *Queries) UpdatePassword(ctx context.Context, id int64, hash string, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, reset_token_hash = '', reset_expires_at = NULL, updated_at = ?
		WHERE id = ?`, hash, now.UTC(), id)
	return expectRow(res, err)
}

// TouchLastLogin records a successful login.
func (q *Queries) TouchLastLogin(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, now.UTC(), id)
	return err
}

// SetUserActive enables or disables a user.
func (q *Queries) SetUserActive(ctx context.Context, id int64, active bool, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, now.UTC(), id)
	return expectRow(res, err)
}

// DeleteUnverifiedUsersBefore removes unverified accounts created before cutoff.
func (q *Queries) DeleteUnverifiedUsersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM users WHERE email_verified = 0 AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BlacklistToken records a revoked token id and keeps only the most recent
// max entries for the user.
func (q *Queries) BlacklistToken(ctx context.Context, userID int64, tokenID string, now time.Time, max int) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO token_blacklist (user_id, token_id, blacklisted_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, token_id) DO NOTHING`, userID, tokenID, now.UTC()); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM token_blacklist
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM token_blacklist WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`, userID, userID, max)
	return err
}

// IsTokenBlacklisted reports whether a token id has been revoked.
func (q *Queries) IsTokenBlacklisted(ctx context.Context, userID int64, tokenID string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM token_blacklist WHERE user_id = ? AND token_id = ?`, userID, tokenID).Scan(&n)
	return n > 0, err
}

// ListBlacklistedTokens returns a user's revoked token ids, newest first.
func (q *Queries) ListBlacklistedTokens(ctx context.Context, userID int64) ([]model.BlacklistedToken, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT user_id, token_id, blacklisted_at FROM token_blacklist
		WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.BlacklistedToken
	for rows.Next() {
		var t model.BlacklistedToken
		if err := rows.Scan(&t.UserID, &t.TokenID, &t.BlacklistedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// expectRow turns a zero-row update into sql.ErrNoRows.
func expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
