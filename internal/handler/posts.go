// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/tenant"
)

type createPostRequest struct {
	Title       string     `json:"title" validate:"required"`
	Slug        string     `json:"slug" validate:"omitempty,max=200"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
	Status      string     `json:"status" validate:"omitempty,oneof=draft published scheduled archived"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Language    string     `json:"language" validate:"omitempty,max=35"`
	Categories  []int64    `json:"categories" validate:"omitempty,dive,gt=0"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,required,max=30"`
}

type updatePostRequest struct {
	Title       *string    `json:"title"`
	Slug        *string    `json:"slug" validate:"omitempty,max=200"`
	Content     *string    `json:"content"`
	Excerpt     *string    `json:"excerpt"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft published scheduled archived"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Language    *string    `json:"language" validate:"omitempty,max=35"`
	Categories  []int64    `json:"categories" validate:"omitempty,dive,gt=0"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,required,max=30"`
}

type translateRequest struct {
	Language string `json:"language" validate:"required,max=35"`
}

// ListPosts handles GET /sites/{siteID}/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	pg := parsePage(r)
	posts, err := h.posts.ListPosts(r.Context(), middleware.GetPrincipal(r), scope, service.ListPostsFilter{
		Status:   r.URL.Query().Get("status"),
		AuthorID: parseQueryInt64(r, "author"),
		Limit:    pg.PerPage,
		Offset:   pg.offset(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, postsToResponse(posts), pg.meta(len(posts)))
}

// CreatePost handles POST /sites/{siteID}/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	var req createPostRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.posts.CreatePost(r.Context(), middleware.GetPrincipal(r), scope, service.PostInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Status:      req.Status,
		ScheduledAt: req.ScheduledAt,
		Language:    req.Language,
		Categories:  req.Categories,
		Tags:        req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, postToResponse(post))
}

// GetPost handles GET /sites/{siteID}/posts/{postID}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	post, err := h.posts.GetPost(r.Context(), middleware.GetPrincipal(r), scope, postID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, postToResponse(post), nil)
}

// UpdatePost handles PATCH /sites/{siteID}/posts/{postID}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	var req updatePostRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.posts.UpdatePost(r.Context(), middleware.GetPrincipal(r), scope, postID, service.PostUpdate{
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Status:      req.Status,
		ScheduledAt: req.ScheduledAt,
		Language:    req.Language,
		Categories:  req.Categories,
		Tags:        req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, postToResponse(post), nil)
}

// DeletePost handles DELETE /sites/{siteID}/posts/{postID}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	if err := h.posts.DeletePost(r.Context(), middleware.GetPrincipal(r), scope, postID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVersions handles GET /sites/{siteID}/posts/{postID}/versions.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	versions, err := h.posts.ListVersions(r.Context(), middleware.GetPrincipal(r), scope, postID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, versionsToResponse(versions), nil)
}

// RestoreVersion handles POST /sites/{siteID}/posts/{postID}/versions/{versionID}/restore.
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	versionID, ok := urlID(w, r, "versionID")
	if !ok {
		return
	}
	post, err := h.posts.RestoreVersion(r.Context(), middleware.GetPrincipal(r), scope, postID, versionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, postToResponse(post), nil)
}

// TranslatePost handles POST /sites/{siteID}/posts/{postID}/translations.
func (h *Handler) TranslatePost(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	var req translateRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.posts.TranslatePost(r.Context(), middleware.GetPrincipal(r), scope, postID, req.Language)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, postToResponse(post))
}

// ViewHistory handles GET /sites/{siteID}/posts/{postID}/views.
func (h *Handler) ViewHistory(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	days, err := h.posts.ViewHistory(r.Context(), middleware.GetPrincipal(r), scope, postID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, days, nil)
}

// ViewPublishedPost handles GET /public/posts/{slug} on a site host. Each
// successful read counts as a view.
func (h *Handler) ViewPublishedPost(w http.ResponseWriter, r *http.Request) {
	site := tenant.SiteFromContext(r.Context())
	post, err := h.posts.ViewPublished(r.Context(), site.ID, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, postToResponse(post), nil)
}
