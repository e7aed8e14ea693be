// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/olegiv/sitehub/internal/metrics"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/rbac"
)

// Sentinel errors returned by every service.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError reports invalid input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem with field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it carries at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AccessDeniedError wraps a denying authorization decision. Its message
// carries the internal reason; HTTP responses show a generic text instead.
type AccessDeniedError struct {
	Action   string
	Decision rbac.Decision
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s: %s", e.Action, e.Decision)
}

// Reason returns the decision's reason code.
func (e *AccessDeniedError) Reason() rbac.Reason {
	return e.Decision.Reason
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("loading %s: %w", what, err)
}

// denier turns denying decisions into AccessDeniedError, recording each
// one in the log, the audit trail and the denial counter.
type denier struct {
	logger *slog.Logger
	events *EventService
}

func (d denier) check(ctx context.Context, p *rbac.Principal, dec rbac.Decision, action string, attrs ...any) error {
	if dec.Allowed {
		return nil
	}

	metrics.AuthzDeniedTotal.WithLabelValues(string(dec.Reason)).Inc()

	var userID *int64
	if p != nil {
		id := p.UserID
		userID = &id
	}
	d.logger.Info("authorization denied",
		append([]any{"action", action, "reason", dec.Reason, "missing", dec.Missing, "user_id", userID}, attrs...)...)

	if d.events != nil {
		_ = d.events.LogAuthEvent(ctx, model.EventLevelWarning, "authorization denied: "+action, userID, "", map[string]any{
			"reason":  string(dec.Reason),
			"missing": dec.Missing,
		})
	}
	return &AccessDeniedError{Action: action, Decision: dec}
}
