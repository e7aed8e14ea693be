// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// page is a parsed page/per_page pair.
type page struct {
	Number  int
	PerPage int
}

func (p page) offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p page) meta(count int) *Meta {
	return &Meta{Page: p.Number, PerPage: p.PerPage, Count: count}
}

// parsePage reads the "page" and "per_page" query parameters.
func parsePage(r *http.Request) page {
	return page{
		Number:  parseIntParam(r, "page", 1, 1, 0),
		PerPage: parseIntParam(r, "per_page", defaultPerPage, 1, maxPerPage),
	}
}

// parseIntParam parses an integer query parameter from the request.
// Returns defaultVal if the parameter is missing, empty, or invalid.
// If minVal > 0, values below minVal return defaultVal.
// If maxVal > 0, values above maxVal return defaultVal.
func parseIntParam(r *http.Request, param string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(param)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if minVal > 0 && val < minVal {
		return defaultVal
	}
	if maxVal > 0 && val > maxVal {
		return defaultVal
	}
	return val
}

// parseQueryInt64 parses a named query parameter as a positive int64.
// Returns 0 if the parameter is missing, invalid, or not positive.
func parseQueryInt64(r *http.Request, name string) int64 {
	val, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || val <= 0 {
		return 0
	}
	return val
}

// urlID parses a positive id from a chi URL parameter, writing a 400 when it
// is malformed.
func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "Invalid "+name)
		return 0, false
	}
	return id, true
}
