// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitehub/internal/auth"
	"github.com/olegiv/sitehub/internal/mail"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/testutil"
)

const goodPassword = "Str0ng!pass"

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	if _, _, err := mail.Render(msg); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type accountFixture struct {
	svc    *AccountService
	tokens *auth.TokenManager
	mail   *outbox
	clock  time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()
	f := &accountFixture{
		tokens: auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour),
		mail:   &outbox{},
		clock:  time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewAccountService(db, rbac.NewEvaluator(rbac.MustDefaultRegistry()), f.tokens, f.mail,
		NewEventService(db, logger), logger, AccountConfig{})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *accountFixture) register(t *testing.T, email, role string) *model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: email, Password: goodPassword, Role: role})
	require.NoError(t, err)
	return u
}

func (f *accountFixture) registerVerified(t *testing.T, email, role string) *model.User {
	t.Helper()
	u := f.register(t, email, role)
	code := f.mail.last(t).Data["Code"].(string)
	require.NoError(t, f.svc.VerifyEmail(context.Background(), email, code))
	return u
}

func TestRegister(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	u := f.register(t, " Ann@Example.com ", "")
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, model.RoleSubscriber, u.RoleName)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, goodPassword, u.PasswordHash)

	msg := f.mail.last(t)
	assert.Equal(t, mail.KindVerification, msg.Kind)
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Len(t, msg.Data["Code"], 6)
	assert.Equal(t, 10, msg.Data["ExpiresMinutes"])

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Dup", Email: "ann@example.com", Password: goodPassword})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	f := newAccountFixture(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: goodPassword}, "name"},
		{"bad email", RegisterInput{Name: "a", Email: "not-an-email", Password: goodPassword}, "email"},
		{"weak password", RegisterInput{Name: "a", Email: "a@example.com", Password: "password"}, "password"},
		{"admin role", RegisterInput{Name: "a", Email: "a@example.com", Password: goodPassword, Role: model.RoleAdmin}, "role"},
		{"editor role", RegisterInput{Name: "a", Email: "a@example.com", Password: goodPassword, Role: model.RoleEditor}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			requireInvalid(t, err, tt.field)
		})
	}
	assert.Zero(t, f.mail.count())
}

func TestVerifyEmail(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	f.register(t, "ann@example.com", model.RoleAuthor)
	code := f.mail.last(t).Data["Code"].(string)

	err := f.svc.VerifyEmail(ctx, "ann@example.com", "000000x")
	requireInvalid(t, err, "code")
	err = f.svc.VerifyEmail(ctx, "ghost@example.com", code)
	requireInvalid(t, err, "code")

	// Codes expire after ten minutes.
	f.clock = f.clock.Add(11 * time.Minute)
	err = f.svc.VerifyEmail(ctx, "ann@example.com", code)
	requireInvalid(t, err, "code")

	require.NoError(t, f.svc.ResendVerification(ctx, "ann@example.com"))
	fresh := f.mail.last(t).Data["Code"].(string)
	require.NoError(t, f.svc.VerifyEmail(ctx, "ann@example.com", fresh))

	err = f.svc.ResendVerification(ctx, "ann@example.com")
	requireInvalid(t, err, "email")
	err = f.svc.ResendVerification(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyEmail_RateLimited(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", model.RoleAuthor)

	for i := 0; i < DefaultAccountConfig().VerifyBurst; i++ {
		requireInvalid(t, f.svc.VerifyEmail(ctx, "ann@example.com", "wrong"), "code")
	}
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "ann@example.com", "wrong"), ErrTooManyAttempts)

	// Other addresses keep their own budget.
	requireInvalid(t, f.svc.VerifyEmail(ctx, "bob@example.com", "wrong"), "code")

	f.clock = f.clock.Add(DefaultAccountConfig().VerifyEvery)
	requireInvalid(t, f.svc.VerifyEmail(ctx, "ann@example.com", "wrong"), "code")
}

func TestLogin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	u := f.register(t, "ann@example.com", model.RoleAuthor)
	sent := f.mail.count()

	// Unverified accounts get a fresh code instead of a token.
	_, err := f.svc.Login(ctx, "ann@example.com", goodPassword, "127.0.0.1")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Equal(t, sent+1, f.mail.count())
	require.NoError(t, f.svc.VerifyEmail(ctx, "ann@example.com", f.mail.last(t).Data["Code"].(string)))

	_, err = f.svc.Login(ctx, "ann@example.com", "Wr0ng!pass", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ghost@example.com", goodPassword, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "ANN@example.com", goodPassword, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)
	assert.True(t, session.User.LastLoginAt.Valid)
	assert.Equal(t, f.clock.Add(time.Hour), session.ExpiresAt)

	claims, err := f.tokens.Parse(session.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, session.TokenID, claims.ID)

	require.NoError(t, f.svc.queries.SetUserActive(ctx, u.ID, false, f.clock))
	_, err = f.svc.Login(ctx, "ann@example.com", goodPassword, "127.0.0.1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
	_, _, err = f.svc.Principal(ctx, u.ID)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogout(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	u := f.registerVerified(t, "ann@example.com", model.RoleAuthor)

	session, err := f.svc.Login(ctx, "ann@example.com", goodPassword, "")
	require.NoError(t, err)

	revoked, err := f.svc.IsRevoked(ctx, u.ID, session.TokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, f.svc.Logout(ctx, u.ID, session.TokenID))
	revoked, err = f.svc.IsRevoked(ctx, u.ID, session.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	requireInvalid(t, f.svc.Logout(ctx, u.ID, ""), "token")
}

func TestPasswordReset(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "ann@example.com", model.RoleAuthor)
	sent := f.mail.count()

	require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
	assert.Equal(t, sent, f.mail.count())

	require.NoError(t, f.svc.ForgotPassword(ctx, "ann@example.com"))
	msg := f.mail.last(t)
	assert.Equal(t, mail.KindPasswordReset, msg.Kind)
	resetURL := msg.Data["ResetURL"].(string)
	require.True(t, strings.HasPrefix(resetURL, DefaultAccountConfig().ResetURL))
	token := strings.TrimPrefix(resetURL, DefaultAccountConfig().ResetURL)

	requireInvalid(t, f.svc.ResetPassword(ctx, token, "short"), "password")
	requireInvalid(t, f.svc.ResetPassword(ctx, "bogus", "N3w!password"), "token")

	require.NoError(t, f.svc.ResetPassword(ctx, token, "N3w!password"))
	// Tokens are single use.
	requireInvalid(t, f.svc.ResetPassword(ctx, token, "N3w!password"), "token")

	_, err := f.svc.Login(ctx, "ann@example.com", goodPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ann@example.com", "N3w!password", "")
	require.NoError(t, err)
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "ann@example.com", model.RoleAuthor)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ann@example.com"))
	token := strings.TrimPrefix(f.mail.last(t).Data["ResetURL"].(string), DefaultAccountConfig().ResetURL)

	f.clock = f.clock.Add(11 * time.Minute)
	requireInvalid(t, f.svc.ResetPassword(ctx, token, "N3w!password"), "token")
}

func TestChangeRole(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	target := f.registerVerified(t, "target@example.com", model.RoleSubscriber)
	author := f.registerVerified(t, "author@example.com", model.RoleAuthor)
	admin := f.registerVerified(t, "admin@example.com", model.RoleAuthor)
	require.NoError(t, f.svc.queries.UpdateUserRole(ctx, admin.ID, model.RoleAdmin, f.clock))

	authorP, _, err := f.svc.Principal(ctx, author.ID)
	require.NoError(t, err)
	adminP, _, err := f.svc.Principal(ctx, admin.ID)
	require.NoError(t, err)

	_, err = f.svc.ChangeRole(ctx, authorP, target.ID, model.RoleEditor)
	requireDenied(t, err, rbac.ReasonMissingPermission)
	_, err = f.svc.ChangeRole(ctx, nil, target.ID, model.RoleEditor)
	requireDenied(t, err, rbac.ReasonUnauthenticated)

	updated, err := f.svc.ChangeRole(ctx, adminP, target.ID, model.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, updated.RoleName)
	assert.Equal(t, model.RoleEditor, updated.LegacyRole)

	_, err = f.svc.ChangeRole(ctx, adminP, target.ID, model.RoleWriter)
	requireInvalid(t, err, "role")
	_, err = f.svc.ChangeRole(ctx, adminP, target.ID, "owner")
	requireInvalid(t, err, "role")
	_, err = f.svc.ChangeRole(ctx, adminP, target.ID, model.RoleSuperAdmin)
	requireDenied(t, err, rbac.ReasonRoleNotAllowed)
	_, err = f.svc.ChangeRole(ctx, adminP, 9999, model.RoleEditor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeUnverified(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	stale := f.register(t, "stale@example.com", model.RoleAuthor)
	f.registerVerified(t, "kept@example.com", model.RoleAuthor)

	n, err := f.svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock = f.clock.Add(25 * time.Hour)
	n, err = f.svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, err = f.svc.Principal(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.queries.GetUserByEmail(ctx, "kept@example.com")
	require.NoError(t, err)
}
