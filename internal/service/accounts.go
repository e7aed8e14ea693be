// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/sitehub/internal/auth"
	sitemail "github.com/olegiv/sitehub/internal/mail"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/store"
)

// Account errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// AccountConfig holds account lifecycle settings.
type AccountConfig struct {
	VerificationTTL     time.Duration
	ResetTTL            time.Duration
	UnverifiedRetention time.Duration
	// ResetURL is the frontend page the reset token is appended to.
	ResetURL string
	// VerifyEvery and VerifyBurst limit verification attempts per email.
	VerifyEvery time.Duration
	VerifyBurst int
}

// DefaultAccountConfig returns the standard account settings.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{
		VerificationTTL:     10 * time.Minute,
		ResetTTL:            10 * time.Minute,
		UnverifiedRetention: 24 * time.Hour,
		ResetURL:            "http://localhost:5173/reset-password/",
		VerifyEvery:         2 * time.Minute,
		VerifyBurst:         5,
	}
}

// AccountService implements registration, email verification, login and
// logout, password reset and role administration.
type AccountService struct {
	db      *sql.DB
	queries *store.Queries
	eval    *rbac.Evaluator
	tokens  *auth.TokenManager
	mailer  sitemail.Mailer
	events  *EventService
	logger  *slog.Logger
	deny    denier
	cfg     AccountConfig
	verify  *attemptLimiter
	now     func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(db *sql.DB, eval *rbac.Evaluator, tokens *auth.TokenManager, mailer sitemail.Mailer, events *EventService, logger *slog.Logger, cfg AccountConfig) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if mailer == nil {
		mailer = sitemail.LogMailer{Logger: logger}
	}
	def := DefaultAccountConfig()
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = def.VerificationTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = def.ResetTTL
	}
	if cfg.UnverifiedRetention <= 0 {
		cfg.UnverifiedRetention = def.UnverifiedRetention
	}
	if cfg.ResetURL == "" {
		cfg.ResetURL = def.ResetURL
	}
	if cfg.VerifyEvery <= 0 {
		cfg.VerifyEvery = def.VerifyEvery
	}
	if cfg.VerifyBurst <= 0 {
		cfg.VerifyBurst = def.VerifyBurst
	}

	return &AccountService{
		db:      db,
		queries: store.New(db),
		eval:    eval,
		tokens:  tokens,
		mailer:  mailer,
		events:  events,
		logger:  logger,
		deny:    denier{logger: logger, events: events},
		cfg:     cfg,
		verify:  newAttemptLimiter(rate.Every(cfg.VerifyEvery), cfg.VerifyBurst),
		now:     time.Now,
	}
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Session is an issued access token.
type Session struct {
	Token     string      `json:"token"`
	TokenID   string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Register creates an unverified account and mails its verification code.
// Only the author and subscriber roles can be picked at sign-up.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		verr.Add("email", err.Error())
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		verr.Add("password", err.Error())
	}
	role := in.Role
	if role == "" {
		role = model.RoleSubscriber
	}
	if !slices.Contains(model.RegistrationRoles, role) {
		verr.Add("role", "role must be author or subscriber")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Email:                 email,
		Name:                  name,
		PasswordHash:          hash,
		RoleName:              role,
		IsActive:              true,
		VerificationCode:      code,
		VerificationExpiresAt: now.Add(s.cfg.VerificationTTL),
		CreatedAt:             now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", role)
	s.userEvent(ctx, model.EventLevelInfo, "user registered", user.ID, "")
	s.sendVerification(ctx, &user, code)
	return &user, nil
}

// VerifyEmail checks a verification code. Attempts are rate limited per
// email address.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return invalid("email", err.Error())
	}
	now := s.now()
	if !s.verify.allow(email, now) {
		s.logger.Warn("verification attempts exceeded", "email", email)
		return ErrTooManyAttempts
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid("code", "invalid or expired code")
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	if !user.VerificationValid(strings.TrimSpace(code), now) {
		return invalid("code", "invalid or expired code")
	}

	if err := s.queries.MarkEmailVerified(ctx, user.ID, now); err != nil {
		return fmt.Errorf("verifying user %d: %w", user.ID, err)
	}
	s.verify.reset(email)
	s.logger.Info("email verified", "user_id", user.ID)
	return nil
}

// ResendVerification issues a fresh code for an unverified account.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return invalid("email", err.Error())
	}
	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return notFound(err, "user")
	}
	if user.EmailVerified {
		return invalid("email", "email is already verified")
	}
	return s.reissueCode(ctx, &user)
}

// Login checks credentials and issues an access token. An unverified
// account gets a new code by mail and ErrEmailNotVerified.
func (s *AccountService) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		s.logger.Info("login failed", "user_id", user.ID, "ip", ip)
		if s.events != nil {
			uid := user.ID
			_ = s.events.LogAuthEvent(ctx, model.EventLevelWarning, "login failed", &uid, ip, nil)
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if !user.EmailVerified {
		if err := s.reissueCode(ctx, &user); err != nil {
			s.logger.Error("failed to reissue verification code", "error", err, "user_id", user.ID)
		}
		return nil, ErrEmailNotVerified
	}

	now := s.now()
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdatePassword(ctx, user.ID, hash, now); err != nil {
				s.logger.Warn("failed to upgrade password hash", "error", err, "user_id", user.ID)
			}
		}
	}
	if err := s.queries.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login", "error", err, "user_id", user.ID)
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	token, tokenID, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "ip", ip)
	s.userEvent(ctx, model.EventLevelInfo, "user logged in", user.ID, ip)
	return &Session{Token: token, TokenID: tokenID, ExpiresAt: now.Add(s.tokens.TTL()), User: &user}, nil
}

// Logout revokes a token id. Only the latest revocations per user are kept.
func (s *AccountService) Logout(ctx context.Context, userID int64, tokenID string) error {
	if tokenID == "" {
		return invalid("token", "token id is required")
	}
	if err := s.queries.BlacklistToken(ctx, userID, tokenID, s.now(), model.MaxBlacklistedTokens); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// IsRevoked reports whether a token id was revoked at logout.
func (s *AccountService) IsRevoked(ctx context.Context, userID int64, tokenID string) (bool, error) {
	return s.queries.IsTokenBlacklisted(ctx, userID, tokenID)
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so
// the endpoint does not reveal which emails are registered.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return invalid("email", err.Error())
	}
	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("password reset for unknown email")
			return nil
		}
		return fmt.Errorf("loading user: %w", err)
	}

	token, hash, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.queries.SetResetToken(ctx, user.ID, hash, now.Add(s.cfg.ResetTTL), now); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	msg := sitemail.Message{
		Kind: sitemail.KindPasswordReset,
		To:   user.Email,
		Data: map[string]any{
			"Name":           user.Name,
			"ResetURL":       s.cfg.ResetURL + token,
			"ExpiresMinutes": int(s.cfg.ResetTTL / time.Minute),
		},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send password reset mail", "error", err, "user_id", user.ID)
	}
	return nil
}

// ResetPassword sets a new password using a reset token.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return invalid("token", "invalid or expired token")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return invalid("password", err.Error())
	}
	now := s.now()
	user, err := s.queries.GetUserByResetTokenHash(ctx, auth.HashResetToken(token), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid("token", "invalid or expired token")
		}
		return fmt.Errorf("loading user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.queries.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.logger.Info("password reset", "user_id", user.ID)
	s.userEvent(ctx, model.EventLevelInfo, "password reset", user.ID, "")
	return nil
}

// ChangeRole assigns a platform role. The caller needs manage_roles; only
// a super admin may hand out super_admin.
func (s *AccountService) ChangeRole(ctx context.Context, p *rbac.Principal, userID int64, role string) (*model.User, error) {
	if err := s.deny.check(ctx, p, s.eval.Authorize(p, rbac.HasPermission(model.PermManageRoles)), "change role", "target_id", userID); err != nil {
		return nil, err
	}
	r, err := s.eval.Registry().Get(role)
	if err != nil || !r.IsPlatform() {
		return nil, invalid("role", "unknown platform role")
	}
	if role == model.RoleSuperAdmin && !p.IsSuperAdmin() {
		return nil, s.deny.check(ctx, p, rbac.Deny(rbac.ReasonRoleNotAllowed, model.RoleSuperAdmin), "grant super_admin", "target_id", userID)
	}

	if err := s.queries.UpdateUserRole(ctx, userID, role, s.now()); err != nil {
		return nil, notFound(err, "user")
	}
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	s.logger.Info("user role changed", "target_id", userID, "role", role, "user_id", p.UserID)
	if s.events != nil {
		uid := p.UserID
		_ = s.events.LogUserEvent(ctx, model.EventLevelInfo, "user role changed", &uid, "", map[string]any{
			"target_id": userID,
			"role":      role,
		})
	}
	return &user, nil
}

// PurgeUnverified deletes accounts that never verified their email within
// the retention window.
func (s *AccountService) PurgeUnverified(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.UnverifiedRetention)
	n, err := s.queries.DeleteUnverifiedUsersBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging unverified users: %w", err)
	}
	if n > 0 {
		s.logger.Info("unverified users purged", "count", n)
	}
	s.verify.prune(10000)
	return n, nil
}

// Principal resolves an authenticated user id to the caller identity used
// by authorization decisions.
func (s *AccountService) Principal(ctx context.Context, userID int64) (*rbac.Principal, *model.User, error) {
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, notFound(err, "user")
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}
	return rbac.NewPrincipal(&user), &user, nil
}

func (s *AccountService) reissueCode(ctx context.Context, user *model.User) error {
	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.queries.SetVerificationCode(ctx, user.ID, code, now.Add(s.cfg.VerificationTTL), now); err != nil {
		return fmt.Errorf("storing verification code: %w", err)
	}
	s.sendVerification(ctx, user, code)
	return nil
}

func (s *AccountService) sendVerification(ctx context.Context, user *model.User, code string) {
	msg := sitemail.Message{
		Kind: sitemail.KindVerification,
		To:   user.Email,
		Data: map[string]any{
			"Name":           user.Name,
			"Code":           code,
			"ExpiresMinutes": int(s.cfg.VerificationTTL / time.Minute),
		},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send verification mail", "error", err, "user_id", user.ID)
	}
}

func (s *AccountService) userEvent(ctx context.Context, level, message string, userID int64, ip string) {
	if s.events == nil {
		return
	}
	_ = s.events.LogUserEvent(ctx, level, message, &userID, ip, nil)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("invalid email address")
	}
	return email, nil
}

// attemptLimiter keeps one token bucket per key.
type attemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newAttemptLimiter(every rate.Limit, burst int) *attemptLimiter {
	return &attemptLimiter{limiters: make(map[string]*rate.Limiter), every: every, burst: burst}
}

func (l *attemptLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// prune drops every bucket once the map grows past maxSize.
func (l *attemptLimiter) prune(maxSize int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) > maxSize {
		l.limiters = make(map[string]*rate.Limiter)
	}
}
