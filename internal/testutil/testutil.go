// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the sitehub project.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that only outputs errors.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary database with migrations applied and the role
// catalog seeded. It is closed when the test ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "sitehub-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := store.ReseedRoles(context.Background(), db, rbac.DefaultCatalog()); err != nil {
		t.Fatalf("ReseedRoles: %v", err)
	}
	return db
}

// CreateUser inserts an active, verified user with the given content role.
func CreateUser(t *testing.T, db *sql.DB, email, role string) model.User {
	t.Helper()

	u, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:         email,
		Name:          email,
		PasswordHash:  "unused",
		RoleName:      role,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

// CreateSite inserts an active site owned by ownerID.
func CreateSite(t *testing.T, db *sql.DB, ownerID int64, subdomain string) model.Site {
	t.Helper()

	s, err := store.New(db).CreateSite(context.Background(), model.Site{
		Name:       subdomain,
		Subdomain:  subdomain,
		OwnerID:    ownerID,
		Type:       model.SiteTypeBlog,
		Template:   "default",
		Theme:      model.DefaultSiteTheme(),
		Plan:       model.PlanFree,
		PlanStatus: model.SubscriptionActive,
		IsActive:   true,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateSite(%s): %v", subdomain, err)
	}
	return s
}

// AddMember inserts an active membership with the default permissions of role.
func AddMember(t *testing.T, db *sql.DB, siteID, userID int64, role string) model.SiteUser {
	t.Helper()

	m, err := store.New(db).CreateSiteUser(context.Background(), model.SiteUser{
		SiteID:      siteID,
		UserID:      userID,
		Role:        role,
		Permissions: model.DefaultSitePermissions(role),
		Status:      model.MembershipActive,
		JoinedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return m
}
