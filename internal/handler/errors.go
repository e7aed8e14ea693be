// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/scheduler"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/tenant"
)

// writeServiceError maps service errors to API responses. Authorization
// denials get a generic message; the reason was already logged by the
// service.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr.Fields)
		return
	}

	var denied *service.AccessDeniedError
	if errors.As(err, &denied) {
		if denied.Reason() == rbac.ReasonUnauthenticated {
			middleware.WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		middleware.WriteAPIError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action", nil)
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, tenant.ErrSiteNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", notFoundMessage(err), nil)
	case errors.Is(err, service.ErrConflict):
		middleware.WriteAPIError(w, http.StatusConflict, "conflict", conflictMessage(err), nil)
	case errors.Is(err, service.ErrTooManyAttempts):
		middleware.WriteAPIError(w, http.StatusTooManyRequests, "too_many_attempts", "Too many attempts. Please try again later.", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, service.ErrEmailNotVerified):
		middleware.WriteAPIError(w, http.StatusForbidden, "email_not_verified", "Email address is not verified. A new code has been sent.", nil)
	case errors.Is(err, service.ErrAccountDisabled):
		middleware.WriteAPIError(w, http.StatusForbidden, "account_disabled", "Account is disabled", nil)
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		writeValidationError(w, map[string]string{"schedule": err.Error()})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, tenant.ErrSiteNotFound):
		return "Site not found"
	case errors.Is(err, scheduler.ErrJobNotFound):
		return "Job not found"
	}
	// "post: not found" -> "Post not found"
	what, _, ok := strings.Cut(err.Error(), ":")
	if !ok || what == "" || strings.Contains(what, " ") {
		return "Resource not found"
	}
	return strings.ToUpper(what[:1]) + what[1:] + " not found"
}

// conflictMessage strips the sentinel prefix from a wrapped ErrConflict.
func conflictMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrConflict.Error()+": ")
	if msg == "" || msg == service.ErrConflict.Error() {
		return "Resource already exists"
	}
	return msg
}
