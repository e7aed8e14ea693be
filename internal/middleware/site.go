// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/sitehub/internal/model"
	"github.com/olegiv/sitehub/internal/tenant"
)

// HeaderSiteID lets API clients on the platform host address a site
// explicitly.
const HeaderSiteID = "X-Site-ID"

// SiteLookup resolves sites for incoming requests.
type SiteLookup interface {
	ByID(ctx context.Context, id int64) (*model.Site, error)
	ByHost(ctx context.Context, host string) (*model.Site, error)
}

// ResolveSite stores the site addressed by the request in its context. The
// Host header is tried first, then the X-Site-ID header. Requests that name
// no site pass through without one; RequireSite rejects those where a site
// is mandatory.
func ResolveSite(sites SiteLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site, err := sites.ByHost(r.Context(), r.Host)
			if errors.Is(err, tenant.ErrSiteNotFound) {
				site, err = siteFromHeader(r, sites)
			}
			if err != nil && !errors.Is(err, tenant.ErrSiteNotFound) {
				slog.Error("failed to resolve site", "host", r.Host, "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve site", nil)
				return
			}
			if site != nil {
				r = r.WithContext(tenant.WithSite(r.Context(), site))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func siteFromHeader(r *http.Request, sites SiteLookup) (*model.Site, error) {
	raw := r.Header.Get(HeaderSiteID)
	if raw == "" {
		return nil, tenant.ErrSiteNotFound
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, tenant.ErrSiteNotFound
	}
	return sites.ByID(r.Context(), id)
}

// RequireSite rejects requests ResolveSite could not attach a site to.
func RequireSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant.SiteFromContext(r.Context()) == nil {
			WriteAPIError(w, http.StatusNotFound, "site_not_found", "Site not found", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
