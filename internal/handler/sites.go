// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/service"
)

type createSiteRequest struct {
	Name        string              `json:"name" validate:"required,max=100"`
	Subdomain   string              `json:"subdomain" validate:"required"`
	Type        string              `json:"type" validate:"omitempty,oneof=blog portfolio business news personal"`
	Template    string              `json:"template" validate:"omitempty,max=50"`
	Title       string              `json:"title" validate:"omitempty,max=200"`
	Tagline     string              `json:"tagline" validate:"omitempty,max=200"`
	ColorScheme string              `json:"color_scheme" validate:"omitempty,max=50"`
	Settings    *model.SiteSettings `json:"settings"`
}

type updateSiteRequest struct {
	Name         *string             `json:"name" validate:"omitempty,min=1,max=100"`
	Type         *string             `json:"type" validate:"omitempty,oneof=blog portfolio business news personal"`
	Template     *string             `json:"template" validate:"omitempty,max=50"`
	Theme        *model.SiteTheme    `json:"theme"`
	Settings     *model.SiteSettings `json:"settings"`
	CustomDomain *string             `json:"custom_domain" validate:"omitempty,fqdn"`
	IsActive     *bool               `json:"is_active"`
}

type memberRequest struct {
	UserID      int64                  `json:"user_id" validate:"required,gt=0"`
	Role        string                 `json:"role" validate:"required,oneof=site_admin editor writer subscriber"`
	Permissions []model.SitePermission `json:"permissions"`
}

type upgradeRequest struct {
	Plan     string `json:"plan" validate:"required,oneof=free pro business"`
	Interval string `json:"interval" validate:"omitempty,oneof=monthly yearly"`
}

// userSitesResponse splits the caller's sites by how they reach them.
type userSitesResponse struct {
	Owned  []SiteResponse `json:"owned"`
	Member []SiteResponse `json:"member"`
}

// ListPlans handles GET /plans.
func (h *Handler) ListPlans(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, h.subscriptions.Plans(), nil)
}

// CheckSubdomain handles GET /subdomains/{subdomain}.
func (h *Handler) CheckSubdomain(w http.ResponseWriter, r *http.Request) {
	status, err := h.sites.CheckSubdomain(r.Context(), chi.URLParam(r, "subdomain"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, status, nil)
}

// ListSites handles GET /sites.
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.sites.ListUserSites(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, userSitesResponse{
		Owned:  sitesToResponse(sites.Owned),
		Member: sitesToResponse(sites.Member),
	}, nil)
}

// CreateSite handles POST /sites.
func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if !h.decode(w, r, &req) {
		return
	}
	site, err := h.sites.CreateSite(r.Context(), middleware.GetPrincipal(r), service.SiteInput{
		Name:        req.Name,
		Subdomain:   req.Subdomain,
		Type:        req.Type,
		Template:    req.Template,
		Title:       req.Title,
		Tagline:     req.Tagline,
		ColorScheme: req.ColorScheme,
		Settings:    req.Settings,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, siteToResponse(site))
}

// GetSite handles GET /sites/{siteID}.
func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	site, err := h.sites.GetSite(r.Context(), middleware.GetPrincipal(r), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, siteToResponse(site), nil)
}

// UpdateSite handles PATCH /sites/{siteID}.
func (h *Handler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var req updateSiteRequest
	if !h.decode(w, r, &req) {
		return
	}
	site, err := h.sites.UpdateSite(r.Context(), middleware.GetPrincipal(r), siteID, service.SiteUpdate{
		Name:         req.Name,
		Type:         req.Type,
		Template:     req.Template,
		Theme:        req.Theme,
		Settings:     req.Settings,
		CustomDomain: req.CustomDomain,
		IsActive:     req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, siteToResponse(site), nil)
}

// DeleteSite handles DELETE /sites/{siteID}.
func (h *Handler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	if err := h.sites.DeleteSite(r.Context(), middleware.GetPrincipal(r), siteID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /sites/{siteID}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	members, err := h.sites.ListMembers(r.Context(), middleware.GetPrincipal(r), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := make([]MemberResponse, len(members))
	for i := range members {
		resp[i] = memberToResponse(&members[i])
	}
	writeSuccess(w, resp, nil)
}

// AddMember handles POST /sites/{siteID}/members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	member, err := h.sites.AddMember(r.Context(), middleware.GetPrincipal(r), siteID, service.MemberInput{
		UserID:      req.UserID,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, memberToResponse(member))
}

// RemoveMember handles DELETE /sites/{siteID}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.sites.RemoveMember(r.Context(), middleware.GetPrincipal(r), siteID, userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSubscription handles GET /sites/{siteID}/subscription.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	sub, err := h.subscriptions.GetSubscription(r.Context(), middleware.GetPrincipal(r), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, subscriptionToResponse(sub), nil)
}

// UpgradeSubscription handles POST /sites/{siteID}/subscription/upgrade.
func (h *Handler) UpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var req upgradeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Interval == "" {
		req.Interval = model.BillingMonthly
	}
	sub, err := h.subscriptions.Upgrade(r.Context(), middleware.GetPrincipal(r), siteID, req.Plan, req.Interval)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, subscriptionToResponse(sub), nil)
}

// CancelSubscription handles POST /sites/{siteID}/subscription/cancel.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	sub, err := h.subscriptions.Cancel(r.Context(), middleware.GetPrincipal(r), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, subscriptionToResponse(sub), nil)
}

// GetUsage handles GET /sites/{siteID}/usage.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	usage, err := h.subscriptions.GetUsage(r.Context(), middleware.GetPrincipal(r), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, usage, nil)
}
