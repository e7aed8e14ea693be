// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/tenant"
)

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Slug        string `json:"slug" validate:"omitempty,max=50"`
	Description string `json:"description" validate:"max=500"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=30"`
}

// ListCategories handles GET /sites/{siteID}/categories and
// GET /public/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.taxonomySite(w, r)
	if !ok {
		return
	}
	categories, err := h.taxonomy.ListCategories(r.Context(), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, categories, nil)
}

// CreateCategory handles POST /sites/{siteID}/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.taxonomy.CreateCategory(r.Context(), middleware.GetPrincipal(r), scope, service.CategoryInput(req))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, category)
}

// UpdateCategory handles PUT /sites/{siteID}/categories/{categoryID}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	categoryID, ok := urlID(w, r, "categoryID")
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.taxonomy.UpdateCategory(r.Context(), middleware.GetPrincipal(r), scope, categoryID, service.CategoryInput(req))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, category, nil)
}

// DeleteCategory handles DELETE /sites/{siteID}/categories/{categoryID}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	categoryID, ok := urlID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := h.taxonomy.DeleteCategory(r.Context(), middleware.GetPrincipal(r), scope, categoryID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /sites/{siteID}/tags and GET /public/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.taxonomySite(w, r)
	if !ok {
		return
	}
	tags, err := h.taxonomy.ListTags(r.Context(), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, tags, nil)
}

// CreateTag handles POST /sites/{siteID}/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	var req tagRequest
	if !h.decode(w, r, &req) {
		return
	}
	tag, err := h.taxonomy.CreateTag(r.Context(), middleware.GetPrincipal(r), scope, req.Name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tag)
}

// DeleteTag handles DELETE /sites/{siteID}/tags/{tagID}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	tagID, ok := urlID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.taxonomy.DeleteTag(r.Context(), middleware.GetPrincipal(r), scope, tagID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taxonomySite picks the site from the host on public routes and from the
// siteID parameter otherwise. Listings are public, so no scope is needed.
func (h *Handler) taxonomySite(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if site := tenant.SiteFromContext(r.Context()); site != nil {
		return site.ID, true
	}
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return 0, false
	}
	site, err := h.resolver.ByID(r.Context(), siteID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return 0, false
	}
	return site.ID, true
}
