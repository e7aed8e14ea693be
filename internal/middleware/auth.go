// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/sitehub/internal/auth"
	"github.com/olegiv/sitehub/internal/metrics"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/service"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped values.
const (
	ContextKeyUser      ContextKey = "user"
	ContextKeyPrincipal ContextKey = "principal"
	ContextKeyTokenID   ContextKey = "token_id"
)

// SessionStore is the part of the account service bearer auth needs.
type SessionStore interface {
	IsRevoked(ctx context.Context, userID int64, tokenID string) (bool, error)
	Principal(ctx context.Context, userID int64) (*rbac.Principal, *model.User, error)
}

// Authenticator verifies bearer tokens and loads the caller.
type Authenticator struct {
	tokens   *auth.TokenManager
	sessions SessionStore
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *auth.TokenManager, sessions SessionStore) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions}
}

var (
	errNoToken      = errors.New("missing bearer token")
	errBadHeader    = errors.New("invalid authorization header")
	errTokenRevoked = errors.New("token revoked")
)

// identity is what a verified token resolves to.
type identity struct {
	principal *rbac.Principal
	user      *model.User
	tokenID   string
}

func (a *Authenticator) authenticate(r *http.Request) (*identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoToken
	}

	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
		return nil, errBadHeader
	}

	claims, err := a.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	revoked, err := a.sessions.IsRevoked(r.Context(), userID, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errTokenRevoked
	}

	principal, user, err := a.sessions.Principal(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return &identity{principal: principal, user: user, tokenID: claims.ID}, nil
}

// RequireAuth creates middleware that rejects requests without a valid,
// unrevoked bearer token for an active account.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.authenticate(r)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// OptionalAuth loads the caller when a valid token is present and serves
// the request anonymously otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.authenticate(r)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				slog.Debug("ignoring invalid bearer token", "path", r.URL.Path, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNoToken):
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	case errors.Is(err, errBadHeader):
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, errTokenRevoked), errors.Is(err, service.ErrNotFound):
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
	case errors.Is(err, service.ErrAccountDisabled):
		WriteAPIError(w, http.StatusForbidden, "account_disabled", "Account is disabled", nil)
	default:
		slog.Error("failed to authenticate request", "path", r.URL.Path, "error", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to authenticate request", nil)
	}
}

func withIdentity(ctx context.Context, id *identity) context.Context {
	ctx = context.WithValue(ctx, ContextKeyPrincipal, id.principal)
	ctx = context.WithValue(ctx, ContextKeyUser, id.user)
	return context.WithValue(ctx, ContextKeyTokenID, id.tokenID)
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, _ := r.Context().Value(ContextKeyUser).(*model.User)
	return user
}

// GetPrincipal retrieves the authenticated principal, or nil for anonymous
// requests.
func GetPrincipal(r *http.Request) *rbac.Principal {
	p, _ := r.Context().Value(ContextKeyPrincipal).(*rbac.Principal)
	return p
}

// GetTokenID returns the id of the bearer token the request was made with.
func GetTokenID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyTokenID).(string)
	return id
}

// RequirePermission creates middleware that requires a platform permission.
// This should be used after RequireAuth. Denials are logged to the event log
// when events is non-nil.
func RequirePermission(eval *rbac.Evaluator, perm model.Permission, events *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r)
			dec := eval.Authorize(p, rbac.HasPermission(perm))
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			metrics.AuthzDeniedTotal.WithLabelValues(string(dec.Reason)).Inc()
			if p == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}

			slog.Info("access denied",
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", p.UserID,
				"user_role", p.RoleName(),
				"required_permission", string(perm),
				"reason", string(dec.Reason),
			)
			if events != nil {
				userID := p.UserID
				_ = events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Access denied: insufficient permissions",
					&userID, getClientIP(r), map[string]any{
						"method":              r.Method,
						"path":                r.URL.Path,
						"required_permission": string(perm),
					})
			}
			WriteAPIError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action", nil)
		})
	}
}
