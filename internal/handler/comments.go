// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/tenant"
)

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type moderateCommentRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// CreateComment handles POST /sites/{siteID}/posts/{postID}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	postID, ok := urlID(w, r, "postID")
	if !ok {
		return
	}
	var req createCommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	comment, err := h.comments.CreateComment(r.Context(), middleware.GetPrincipal(r), scope, postID, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, comment)
}

// ListComments handles GET /sites/{siteID}/comments, the moderation queue.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	pg := parsePage(r)
	comments, err := h.comments.ListComments(r.Context(), middleware.GetPrincipal(r), scope, service.ListCommentsFilter{
		PostID: parseQueryInt64(r, "post"),
		Status: r.URL.Query().Get("status"),
		Limit:  pg.PerPage,
		Offset: pg.offset(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, comments, pg.meta(len(comments)))
}

// ModerateComment handles PATCH /sites/{siteID}/comments/{commentID}.
func (h *Handler) ModerateComment(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	commentID, ok := urlID(w, r, "commentID")
	if !ok {
		return
	}
	var req moderateCommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	comment, err := h.comments.ModerateComment(r.Context(), middleware.GetPrincipal(r), scope, commentID, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, comment, nil)
}

// DeleteComment handles DELETE /sites/{siteID}/comments/{commentID}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	_, scope, ok := h.siteScope(w, r)
	if !ok {
		return
	}
	commentID, ok := urlID(w, r, "commentID")
	if !ok {
		return
	}
	if err := h.comments.DeleteComment(r.Context(), middleware.GetPrincipal(r), scope, commentID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPublicComments handles GET /public/posts/{slug}/comments on a site
// host. Only approved comments are listed.
func (h *Handler) ListPublicComments(w http.ResponseWriter, r *http.Request) {
	site := tenant.SiteFromContext(r.Context())
	pg := parsePage(r)
	comments, err := h.comments.ListPostComments(r.Context(), site.ID, chi.URLParam(r, "slug"), pg.PerPage, pg.offset())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, comments, pg.meta(len(comments)))
}
