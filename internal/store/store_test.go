// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
)

// testDB creates a migrated database with the role catalog seeded.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "sitehub-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := ReseedRoles(context.Background(), db, rbac.DefaultCatalog()); err != nil {
		t.Fatalf("ReseedRoles: %v", err)
	}
	return db
}

func createUser(t *testing.T, q *Queries, email, role string) model.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:         email,
		Name:          "Test " + role,
		PasswordHash:  "hash",
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

func createSite(t *testing.T, q *Queries, owner int64, subdomain string) model.Site {
	t.Helper()
	s, err := q.CreateSite(context.Background(), model.Site{
		Name:       subdomain,
		Subdomain:  subdomain,
		OwnerID:    owner,
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

func createPost(t *testing.T, q *Queries, siteID, authorID int64, slug, status string) model.Post {
	t.Helper()
	p, err := q.CreatePost(context.Background(), CreatePostParams{
		SiteID:    siteID,
		AuthorID:  authorID,
		Title:     slug,
		Slug:      slug,
		Content:   "<p>" + slug + "</p>",
		Status:    status,
		Language:  model.DefaultLanguage,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreatePost(%s): %v", slug, err)
	}
	return p
}

func TestReseedRolesMatchesCatalog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	roles, err := q.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != len(rbac.DefaultCatalog()) {
		t.Errorf("len(roles) = %d, want %d", len(roles), len(rbac.DefaultCatalog()))
	}

	author, err := q.GetRole(ctx, model.RoleAuthor)
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if author.Level != 3 || !author.Has(model.PermPublishPosts) {
		t.Errorf("author = %+v", author)
	}
}

func TestReseedRolesIsDestructive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	if _, err := db.Exec(`INSERT INTO roles (name, display_name, level, permissions) VALUES ('moderator', 'Moderator', 3, '[]')`); err != nil {
		t.Fatalf("insert stray role: %v", err)
	}
	if _, err := db.Exec(`UPDATE roles SET level = 7, permissions = '[]' WHERE name = 'author'`); err != nil {
		t.Fatalf("tamper author: %v", err)
	}
	u := createUser(t, q, "mod@example.com", "moderator")

	if err := ReseedRoles(ctx, db, rbac.DefaultCatalog()); err != nil {
		t.Fatalf("ReseedRoles: %v", err)
	}

	if _, err := q.GetRole(ctx, "moderator"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("stray role still present: %v", err)
	}
	author, _ := q.GetRole(ctx, model.RoleAuthor)
	if author.Level != 3 || len(author.Permissions) == 0 {
		t.Errorf("author not restored: %+v", author)
	}

	got, err := q.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.RoleName != "" {
		t.Errorf("RoleName = %q, want empty after its role was removed", got.RoleName)
	}
	if got.LegacyRole != "moderator" {
		t.Errorf("LegacyRole = %q, want moderator", got.LegacyRole)
	}
}

func TestCreateUser(t *testing.T) {
	db := testDB(t)
	q := New(db)

	u := createUser(t, q, "test@example.com", model.RoleEditor)
	if u.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if u.RoleName != model.RoleEditor || u.LegacyRole != model.RoleEditor {
		t.Errorf("roles = %q/%q, want editor/editor", u.RoleName, u.LegacyRole)
	}
	if u.PlatformRole != model.PlatformRoleUser {
		t.Errorf("PlatformRole = %q, want user", u.PlatformRole)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	q := New(db)

	createUser(t, q, "dup@example.com", model.RoleAuthor)
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Email: "dup@example.com", Name: "Again", PasswordHash: "x", RoleName: model.RoleAuthor, CreatedAt: time.Now(),
	})
	if !IsUniqueViolation(err) {
		t.Errorf("err = %v, want unique violation", err)
	}
}

func TestCreateUser_UnknownRole(t *testing.T) {
	db := testDB(t)
	_, err := New(db).CreateUser(context.Background(), CreateUserParams{
		Email: "x@example.com", Name: "X", PasswordHash: "x", RoleName: "ghost", CreatedAt: time.Now(),
	})
	if !IsForeignKeyViolation(err) {
		t.Errorf("err = %v, want foreign key violation", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := New(db).GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateUserRoleKeepsLegacyInSync(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	u := createUser(t, q, "role@example.com", model.RoleAuthor)
	if err := q.UpdateUserRole(ctx, u.ID, model.RoleEditor, time.Now()); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	got, _ := q.GetUserByID(ctx, u.ID)
	if got.RoleName != model.RoleEditor || got.LegacyRole != model.RoleEditor {
		t.Errorf("roles = %q/%q, want editor/editor", got.RoleName, got.LegacyRole)
	}

	if err := q.UpdateUserRole(ctx, 9999, model.RoleEditor, time.Now()); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing user err = %v, want sql.ErrNoRows", err)
	}
}

func TestBlacklistTokenKeepsMostRecent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)
	u := createUser(t, q, "tokens@example.com", model.RoleAuthor)

	now := time.Now()
	for i := 0; i < 12; i++ {
		if err := q.BlacklistToken(ctx, u.ID, fmt.Sprintf("jti-%02d", i), now, model.MaxBlacklistedTokens); err != nil {
			t.Fatalf("BlacklistToken: %v", err)
		}
	}

	tokens, err := q.ListBlacklistedTokens(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListBlacklistedTokens: %v", err)
	}
	if len(tokens) != model.MaxBlacklistedTokens {
		t.Fatalf("len(tokens) = %d, want %d", len(tokens), model.MaxBlacklistedTokens)
	}
	if tokens[0].TokenID != "jti-11" {
		t.Errorf("newest = %q, want jti-11", tokens[0].TokenID)
	}

	if ok, _ := q.IsTokenBlacklisted(ctx, u.ID, "jti-00"); ok {
		t.Error("oldest token should have been evicted")
	}
	if ok, _ := q.IsTokenBlacklisted(ctx, u.ID, "jti-05"); !ok {
		t.Error("recent token should still be blacklisted")
	}
}

func TestDeleteUnverifiedUsersBefore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	old := time.Now().Add(-48 * time.Hour)
	stale, err := q.CreateUser(ctx, CreateUserParams{Email: "stale@example.com", Name: "S", PasswordHash: "x", RoleName: model.RoleSubscriber, CreatedAt: old})
	if err != nil {
		t.Fatal(err)
	}
	verified, err := q.CreateUser(ctx, CreateUserParams{Email: "ok@example.com", Name: "V", PasswordHash: "x", RoleName: model.RoleSubscriber, EmailVerified: true, CreatedAt: old})
	if err != nil {
		t.Fatal(err)
	}
	fresh := createUser(t, q, "fresh@example.com", model.RoleSubscriber)
	if _, err := db.Exec(`UPDATE users SET email_verified = 0 WHERE id = ?`, fresh.ID); err != nil {
		t.Fatal(err)
	}

	n, err := q.DeleteUnverifiedUsersBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteUnverifiedUsersBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, err := q.GetUserByID(ctx, stale.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Error("stale unverified user should be gone")
	}
	for _, id := range []int64{verified.ID, fresh.ID} {
		if _, err := q.GetUserByID(ctx, id); err != nil {
			t.Errorf("user %d should remain: %v", id, err)
		}
	}
}

func TestResetTokenLookup(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)
	u := createUser(t, q, "reset@example.com", model.RoleAuthor)

	now := time.Now()
	if err := q.SetResetToken(ctx, u.ID, "abc", now.Add(10*time.Minute), now); err != nil {
		t.Fatal(err)
	}
	got, err := q.GetUserByResetTokenHash(ctx, "abc", now)
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByResetTokenHash = %v, %v", got.ID, err)
	}
	if _, err := q.GetUserByResetTokenHash(ctx, "abc", now.Add(11*time.Minute)); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expired token err = %v, want sql.ErrNoRows", err)
	}

	if err := q.UpdatePassword(ctx, u.ID, "newhash", now); err != nil {
		t.Fatal(err)
	}
	if _, err := q.GetUserByResetTokenHash(ctx, "abc", now); !errors.Is(err, sql.ErrNoRows) {
		t.Error("reset token should be cleared after password update")
	}
}
