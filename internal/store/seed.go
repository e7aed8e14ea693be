// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/sitehub/internal/auth"
	"github.com/olegiv/sitehub/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "Changeme1!"
	DefaultAdminName     = "Administrator"
)

// SeedAdmin creates the platform super administrator if no user with email exists.
func SeedAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	if email == "" {
		email = DefaultAdminEmail
	}
	if password == "" {
		password = DefaultAdminPassword
	}

	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:         email,
		Name:          DefaultAdminName,
		PasswordHash:  passwordHash,
		RoleName:      model.RoleAdmin,
		PlatformRole:  model.PlatformRoleSuperAdmin,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user", "id", user.ID, "email", user.Email)
	return nil
}
