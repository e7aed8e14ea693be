// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=author subscriber"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, userToResponse(user))
}

// VerifyEmail handles POST /auth/verify-email.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, map[string]bool{"verified": true}, nil)
}

// ResendVerification handles POST /auth/resend-verification.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ResendVerification(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, map[string]bool{"sent": true}, nil)
}

// Login handles POST /auth/token. Failed attempts count towards a lockout
// of the account.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if locked, remaining := h.loginProtection.IsAccountLocked(req.Email); locked {
		writeLocked(w, remaining.Seconds())
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			if locked, lockout := h.loginProtection.RecordFailedAttempt(req.Email); locked {
				writeLocked(w, lockout.Seconds())
				return
			}
		}
		h.writeServiceError(w, r, err)
		return
	}

	h.loginProtection.RecordSuccessfulLogin(req.Email)
	writeSuccess(w, sessionToResponse(session), nil)
}

func writeLocked(w http.ResponseWriter, seconds float64) {
	retry := int(math.Ceil(seconds))
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	middleware.WriteAPIError(w, http.StatusTooManyRequests, "account_locked",
		fmt.Sprintf("Too many failed attempts. Try again in %d seconds.", retry), nil)
}

// Logout handles POST /auth/logout by revoking the current token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if err := h.accounts.Logout(r.Context(), user.ID, middleware.GetTokenID(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, userToResponse(middleware.GetUser(r)), nil)
}

// ForgotPassword handles POST /auth/forgot-password. The response does not
// reveal whether the address is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Response{Data: map[string]bool{"sent": true}})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, map[string]bool{"reset": true}, nil)
}

// ChangeRole handles PUT /admin/users/{userID}/role.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}
	var req changeRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.ChangeRole(r.Context(), middleware.GetPrincipal(r), userID, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, userToResponse(user), nil)
}
