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

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	f := s.site(t, "shelf")
	base := "/sites/" + itoa(f.site.ID) + "/categories"

	rec := s.do(t, call{method: http.MethodPost, path: base, token: f.token, body: map[string]any{"name": "How To", "description": "Guides"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat model.Category
	data(t, rec, &cat)
	assert.Equal(t, "how-to", cat.Slug)

	rec = s.do(t, call{method: http.MethodPost, path: base, token: f.token, body: map[string]any{"name": "How To"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	post := s.createPost(t, f, map[string]any{"title": "Guide", "content": "<p>x</p>", "categories": []int64{cat.ID}})
	assert.Equal(t, []int64{cat.ID}, post.Categories)

	rec = s.do(t, call{method: http.MethodPost, path: f.base, token: f.token, body: map[string]any{"title": "Bad", "content": "<p>x</p>", "categories": []int64{cat.ID + 100}}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, call{method: http.MethodPut, path: base + "/" + itoa(cat.ID), token: f.token, body: map[string]any{"name": "Tutorials"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/public/categories", host: "shelf." + testBaseDomain})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listed []model.Category
	data(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Tutorials", listed[0].Name)

	_, readerToken := s.user(t, "reader@example.com", model.RoleSubscriber)
	rec = s.do(t, call{method: http.MethodDelete, path: base + "/" + itoa(cat.ID), token: readerToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: base + "/" + itoa(cat.ID), token: f.token})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: f.base + "/" + itoa(post.ID), token: f.token})
	require.Equal(t, http.StatusOK, rec.Code)
	var got PostResponse
	data(t, rec, &got)
	assert.Empty(t, got.Categories)
}

func TestTags(t *testing.T) {
	s := newTestServer(t)
	f := s.site(t, "labels")
	base := "/sites/" + itoa(f.site.ID) + "/tags"

	s.createPost(t, f, map[string]any{"title": "Tagged", "content": "<p>x</p>", "tags": []string{"go", "sqlite"}})

	rec := s.do(t, call{method: http.MethodGet, path: base, token: f.token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tags []model.Tag
	data(t, rec, &tags)
	require.Len(t, tags, 2)

	rec = s.do(t, call{method: http.MethodPost, path: base, token: f.token, body: map[string]any{"name": "go"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: base, token: f.token, body: map[string]any{"name": "this tag name is far too long to keep"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: base + "/" + itoa(tags[0].ID), token: f.token})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/public/tags", host: "labels." + testBaseDomain})
	require.Equal(t, http.StatusOK, rec.Code)
	data(t, rec, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, "sqlite", tags[0].Name)
}
