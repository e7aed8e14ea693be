// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitehub/internal/model"
)

func TestComments_ModerationFlow(t *testing.T) {
	s := newTestServer(t)
	f := s.site(t, "talk")
	post := s.createPost(t, f, map[string]any{"title": "Open Thread", "content": "<p>x</p>", "status": "published"})
	_, readerToken := s.user(t, "reader@example.com", model.RoleSubscriber)

	commentsPath := f.base + "/" + itoa(post.ID) + "/comments"
	queue := "/sites/" + itoa(f.site.ID) + "/comments"
	public := "/public/posts/open-thread/comments"
	host := "talk." + testBaseDomain

	rec := s.do(t, call{method: http.MethodPost, path: commentsPath, token: readerToken, body: map[string]any{"content": "First!"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Comment
	data(t, rec, &created)
	assert.Equal(t, model.CommentPending, created.Status)
	assert.Equal(t, "First!", created.Content)

	rec = s.do(t, call{method: http.MethodGet, path: public, host: host})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var shown []model.Comment
	data(t, rec, &shown)
	assert.Empty(t, shown)

	rec = s.do(t, call{method: http.MethodGet, path: queue, token: readerToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodPatch, path: queue + "/" + itoa(created.ID), token: readerToken, body: map[string]any{"status": "approved"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: queue + "?status=pending", token: f.token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pending []model.Comment
	data(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = s.do(t, call{method: http.MethodPatch, path: queue + "/" + itoa(created.ID), token: f.token, body: map[string]any{"status": "approved"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: public, host: host})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data(t, rec, &shown)
	require.Len(t, shown, 1)
	assert.Equal(t, "First!", shown[0].Content)

	rec = s.do(t, call{method: http.MethodDelete, path: queue + "/" + itoa(created.ID), token: readerToken})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestComments_Validation(t *testing.T) {
	s := newTestServer(t)
	f := s.site(t, "quiet")
	draft := s.createPost(t, f, map[string]any{"title": "Draft", "content": "<p>x</p>"})
	_, readerToken := s.user(t, "reader@example.com", model.RoleSubscriber)

	path := f.base + "/" + itoa(draft.ID) + "/comments"

	rec := s.do(t, call{method: http.MethodPost, path: path, token: readerToken, body: map[string]any{"content": "hi"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: path, token: readerToken, body: map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: path, body: map[string]any{"content": "hi"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, call{method: http.MethodPatch, path: "/sites/" + itoa(f.site.ID) + "/comments/1", token: f.token, body: map[string]any{"status": "spam"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestComments_StayInsideTheirSite(t *testing.T) {
	s := newTestServer(t)
	home := s.site(t, "home")
	away := s.site(t, "away")
	post := s.createPost(t, home, map[string]any{"title": "Local", "content": "<p>x</p>", "status": "published"})

	reader, readerToken := s.user(t, "reader@example.com", model.RoleSubscriber)
	rec := s.do(t, call{method: http.MethodPost, path: away.base + "/" + itoa(post.ID) + "/comments", token: readerToken, body: map[string]any{"content": "hi"}})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: home.base + "/" + itoa(post.ID) + "/comments", token: readerToken, body: map[string]any{"content": "hi"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c model.Comment
	data(t, rec, &c)
	assert.Equal(t, reader.ID, c.UserID)

	rec = s.do(t, call{method: http.MethodPatch, path: "/sites/" + itoa(away.site.ID) + "/comments/" + itoa(c.ID), token: away.token, body: map[string]any{"status": "approved"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
